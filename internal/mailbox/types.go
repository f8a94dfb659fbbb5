package mailbox

import (
	"context"
	"net/mail"
	"strings"
	"time"
)

// Filter is a mailbox filter that matches a single sender.
// Archive is true when the filter skips the inbox, which is what makes it an
// auto-archive filter.
type Filter struct {
	ID            string `json:"id"`
	SenderAddress string `json:"senderAddress"`
	LabelID       string `json:"labelId,omitempty"`
	Archive       bool   `json:"archive"`
}

// IsAutoArchiveFor reports whether f archives mail from address.
func (f Filter) IsAutoArchiveFor(address string) bool {
	return f.Archive && NormalizeAddress(f.SenderAddress) == NormalizeAddress(address)
}

// FilterSpec describes a filter to create.
type FilterSpec struct {
	SenderAddress string
	LabelID       string // optional label to apply
	Archive       bool   // remove INBOX from matching messages
}

// Label is a mailbox label.
type Label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "system" or "user"
}

// Thread is the local view of a conversation.
type Thread struct {
	ID              string    `json:"id"`
	SenderAddress   string    `json:"senderAddress"`
	IsRead          bool      `json:"isRead"`
	IsTrashed       bool      `json:"isTrashed"`
	Subject         string    `json:"subject,omitempty"`
	Snippet         string    `json:"snippet,omitempty"`
	UnsubscribeLink string    `json:"unsubscribeLink,omitempty"`
	LastMessageAt   time.Time `json:"lastMessageAt"`
}

// ThreadQuery selects threads from a single sender.
type ThreadQuery struct {
	Sender         string
	IncludeTrashed bool
	InboxOnly      bool // only threads still in the inbox ("unarchived")
	Limit          int  // 0 means the provider default
}

// API is the remote mailbox consumed by senderwatch.
type API interface {
	CreateFilter(ctx context.Context, spec FilterSpec) (Filter, error)
	DeleteFilter(ctx context.Context, id string) error
	ListFilters(ctx context.Context) ([]Filter, error)
	ListLabels(ctx context.Context) ([]Label, error)
	ListThreads(ctx context.Context, q ThreadQuery) ([]Thread, error)
	SetRead(ctx context.Context, threadID string, read bool) error
	Trash(ctx context.Context, threadID string) error

	// Account returns the identity of the mailbox, used to build settings links.
	Account() string
}

// NormalizeAddress returns the bare, lower-cased address for s.
// It accepts both "news@example.com" and "News <news@example.com>".
func NormalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<>\"") {
		if addr, err := mail.ParseAddress(s); err == nil {
			s = addr.Address
		}
	}
	return strings.ToLower(s)
}
