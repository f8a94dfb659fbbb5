// Package mailbox defines the remote mailbox API consumed by senderwatch and
// the typed clients built on top of it.
//
// FilterClient and ThreadClient add the retry policy, metrics and tracing to
// the raw API. Neither keeps state: caching belongs to the filters and threads
// packages.
package mailbox
