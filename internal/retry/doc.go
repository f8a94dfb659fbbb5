// Package retry implements the single-retry policy used by the mailbox and
// analytics clients.
//
// A failed call is retried exactly once after a fixed backoff when the error is
// transient (network error, timeout, HTTP 429 or 5xx). Any other failure is
// surfaced to the caller unchanged.
package retry
