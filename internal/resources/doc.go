// Package resources provides MCP resources exposing the local sender state.
// Resources are read-only data sources that MCP clients can fetch without
// calling the mailbox provider:
//
//   - senderwatch://senders lists every sender seen so far with its
//     auto-archive state and latest unsubscribe link
//   - senderwatch://refresh shows the refresh schedule and the latest
//     stats of every watched sender
package resources
