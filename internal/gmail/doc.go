// Package gmail implements the mailbox API on top of the Gmail v1 REST API.
//
// Auto-archive filters are Gmail settings filters with a From criterion and a
// "remove INBOX" action. Thread state is derived from message labels: a thread
// is unread while any message carries UNREAD and trashed once every message
// carries TRASH.
//
// Authentication reuses the token cached on disk by the google package; this
// package never runs an OAuth flow itself.
//
// Example usage:
//
//	client, err := gmail.NewClientForAccount(ctx, "default", creds)
//	if err != nil {
//	    return err
//	}
//	threads, err := client.ListThreads(ctx, mailbox.ThreadQuery{Sender: "news@example.com", InboxOnly: true})
package gmail
