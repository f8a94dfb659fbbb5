// Package google loads cached OAuth2 tokens for the Gmail API.
//
// Tokens are written by a separate login flow into the user cache directory,
// one file per account (google-<account>.token). This package only reads and
// refreshes them; it never runs an authorization flow.
package google
