// Package analytics queries per-sender message counts from a time-series store.
//
// The API interface answers one question: how many messages did a sender
// send in each of a set of contiguous periods. Client wraps an API with
// tracing, metrics and the retry policy. MongoStore and SQLiteStore are the
// two backends.
package analytics
