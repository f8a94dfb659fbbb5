// Package filters owns the auto-archive state of senders.
//
// Manager keeps a cache of Sender snapshots and reconciles it with the
// remote mailbox filters. The cache only changes after the remote call
// succeeded; failed calls leave it untouched. Concurrent create, delete or
// verify calls for the same sender are rejected with a ConflictError.
package filters
