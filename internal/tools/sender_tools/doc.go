// Package sender_tools provides the MCP tools for managing newsletter senders.
//
// Read-only tools are always registered:
//   - sender_verify_auto_archive, sender_filter_settings_link, sender_info
//   - sender_stats, sender_list_threads
//   - mailbox_list_labels
//
// Tools that change the mailbox are only registered when the server is not
// running in read-only mode:
//   - sender_auto_archive, sender_disable_auto_archive
//   - thread_mark_read, thread_mark_unread, thread_trash
//
// Every handler is wrapped with common.InstrumentedToolHandler, so each call
// produces a span, a tool metric and an audit log entry.
package sender_tools
