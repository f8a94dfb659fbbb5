package gmail

import (
	"context"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/senderwatch/internal/mailbox"
)

// System label IDs used by filters and thread mutations.
const (
	labelInbox  = "INBOX"
	labelUnread = "UNREAD"
	labelTrash  = "TRASH"
)

// CreateFilter creates a Gmail filter matching mail from spec.SenderAddress.
func (c *Client) CreateFilter(ctx context.Context, spec mailbox.FilterSpec) (mailbox.Filter, error) {
	action := &gmail.FilterAction{}
	if spec.LabelID != "" {
		action.AddLabelIds = []string{spec.LabelID}
	}
	// Archive means removing INBOX label
	if spec.Archive {
		action.RemoveLabelIds = []string{labelInbox}
	}

	filter := &gmail.Filter{
		Criteria: &gmail.FilterCriteria{From: spec.SenderAddress},
		Action:   action,
	}

	created, err := c.svc.Settings.Filters.Create(userID, filter).Context(ctx).Do()
	if err != nil {
		return mailbox.Filter{}, err
	}

	return convertFilter(created), nil
}

// DeleteFilter deletes a filter by ID. A missing filter surfaces as a 404 googleapi.Error.
func (c *Client) DeleteFilter(ctx context.Context, id string) error {
	return c.svc.Settings.Filters.Delete(userID, id).Context(ctx).Do()
}

// ListFilters lists all Gmail filters for the user.
func (c *Client) ListFilters(ctx context.Context) ([]mailbox.Filter, error) {
	resp, err := c.svc.Settings.Filters.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	filters := make([]mailbox.Filter, 0, len(resp.Filter))
	for _, f := range resp.Filter {
		filters = append(filters, convertFilter(f))
	}
	return filters, nil
}

// ListLabels lists all Gmail labels for the user.
func (c *Client) ListLabels(ctx context.Context) ([]mailbox.Label, error) {
	resp, err := c.svc.Labels.List(userID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	labels := make([]mailbox.Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, mailbox.Label{ID: l.Id, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// convertFilter converts a Gmail API filter. Only the From criterion is kept:
// filters matching on anything else never count as sender filters.
func convertFilter(f *gmail.Filter) mailbox.Filter {
	out := mailbox.Filter{ID: f.Id}

	if f.Criteria != nil && f.Criteria.Subject == "" && f.Criteria.Query == "" && f.Criteria.To == "" {
		out.SenderAddress = mailbox.NormalizeAddress(f.Criteria.From)
	}

	if f.Action != nil {
		for _, labelID := range f.Action.RemoveLabelIds {
			if labelID == labelInbox {
				out.Archive = true
			}
		}
		for _, labelID := range f.Action.AddLabelIds {
			if labelID != labelTrash {
				out.LabelID = labelID
				break
			}
		}
	}

	return out
}
