package gmail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/senderwatch/internal/mailbox"
)

// defaultThreadLimit caps thread listings when the query sets no limit.
const defaultThreadLimit = 50

// metadataHeaders are fetched for every listed thread.
var metadataHeaders = []string{"From", "Subject", "List-Unsubscribe"}

// ListThreads lists the threads from q.Sender, newest first, with their
// read and trash state resolved from message labels.
func (c *Client) ListThreads(ctx context.Context, q mailbox.ThreadQuery) ([]mailbox.Thread, error) {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = defaultThreadLimit
	}

	refs, err := c.listThreadRefs(ctx, buildThreadQuery(q), limit, q.IncludeTrashed)
	if err != nil {
		return nil, err
	}

	threads := make([]mailbox.Thread, 0, len(refs))
	for _, ref := range refs {
		full, err := c.svc.Threads.Get(userID, ref.Id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get thread %s: %w", ref.Id, err)
		}
		threads = append(threads, convertThread(full))
	}

	return threads, nil
}

// listThreadRefs pages through Threads.List until limit refs are collected.
func (c *Client) listThreadRefs(ctx context.Context, query string, limit int64, includeTrashed bool) ([]*gmail.Thread, error) {
	var all []*gmail.Thread
	pageToken := ""

	for {
		remaining := limit - int64(len(all))
		if remaining <= 0 {
			break
		}

		// Gmail API has a max page size of 100
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Threads.List(userID).Q(query).MaxResults(pageSize).IncludeSpamTrash(includeTrashed)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, err
		}

		all = append(all, res.Threads...)

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

// SetRead marks all messages of a thread read or unread.
func (c *Client) SetRead(ctx context.Context, threadID string, read bool) error {
	req := &gmail.ModifyThreadRequest{}
	if read {
		req.RemoveLabelIds = []string{labelUnread}
	} else {
		req.AddLabelIds = []string{labelUnread}
	}

	_, err := c.svc.Threads.Modify(userID, threadID, req).Context(ctx).Do()
	return err
}

// Trash moves a thread to the trash.
func (c *Client) Trash(ctx context.Context, threadID string) error {
	_, err := c.svc.Threads.Trash(userID, threadID).Context(ctx).Do()
	return err
}

// buildThreadQuery builds the Gmail search query for q.
func buildThreadQuery(q mailbox.ThreadQuery) string {
	var parts []string
	if q.Sender != "" {
		parts = append(parts, "from:"+mailbox.NormalizeAddress(q.Sender))
	}
	if q.InboxOnly {
		parts = append(parts, "in:inbox")
	}
	return strings.Join(parts, " ")
}

// convertThread maps a Gmail thread fetched in metadata format.
// A thread is read when no message carries UNREAD and trashed when every message carries TRASH.
func convertThread(t *gmail.Thread) mailbox.Thread {
	out := mailbox.Thread{
		ID:      t.Id,
		Snippet: t.Snippet,
		IsRead:  true,
	}

	trashed := len(t.Messages) > 0
	for _, m := range t.Messages {
		unread, inTrash := false, false
		for _, l := range m.LabelIds {
			switch l {
			case labelUnread:
				unread = true
			case labelTrash:
				inTrash = true
			}
		}
		if unread {
			out.IsRead = false
		}
		if !inTrash {
			trashed = false
		}

		if out.SenderAddress == "" {
			out.SenderAddress = mailbox.NormalizeAddress(headerValue(m, "From"))
		}
		if out.Subject == "" {
			out.Subject = headerValue(m, "Subject")
		}
		// The newest message wins for the unsubscribe link.
		if link := UnsubscribeLink(headerValue(m, "List-Unsubscribe")); link != "" {
			out.UnsubscribeLink = link
		}
		if m.InternalDate > 0 {
			at := time.UnixMilli(m.InternalDate).UTC()
			if at.After(out.LastMessageAt) {
				out.LastMessageAt = at
			}
		}
	}
	out.IsTrashed = trashed

	if out.Snippet == "" && len(t.Messages) > 0 {
		out.Snippet = t.Messages[len(t.Messages)-1].Snippet
	}

	return out
}

// headerValue extracts a header value from a Gmail message
func headerValue(m *gmail.Message, header string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}
