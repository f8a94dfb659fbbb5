// Package threads coordinates optimistic thread state mutations.
//
// Coordinator caches the threads it has listed. A mutation is a two-phase
// local transaction: the previous state is snapshotted into a
// PendingMutation, the new state is applied to the cache right away, and
// once the remote call resolves the change is either committed or the
// snapshot restored exactly. A thread has at most one pending mutation.
package threads
