package filters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"sync"

	"github.com/teemow/senderwatch/internal/apperrors"
	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/mailbox"
)

// Rule operations, used in errors, conflicts and logs.
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpVerify = "verify"
)

// settingsURL is the Gmail web page listing the filters of an account.
const settingsURL = "https://mail.google.com/mail/u/%s/#settings/filters"

// Sender is a snapshot of the auto-archive state of one sender address.
type Sender struct {
	Address             string `json:"address"`
	AutoArchived        bool   `json:"autoArchived"`
	LastUnsubscribeLink string `json:"lastUnsubscribeLink,omitempty"`
	ActiveFilterID      string `json:"activeFilterId,omitempty"`
	LabelID             string `json:"labelId,omitempty"`
}

// RuleClient is the subset of mailbox.FilterClient the manager needs.
type RuleClient interface {
	Account() string
	CreateAutoArchive(ctx context.Context, address, labelID string) (mailbox.Filter, error)
	Delete(ctx context.Context, id string) error
	FindAutoArchive(ctx context.Context, address string) (mailbox.Filter, bool, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(mgr *Manager) { mgr.logger = l }
}

// Manager is the filter lifecycle manager. It is safe for concurrent use.
type Manager struct {
	client  RuleClient
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu       sync.Mutex
	senders  map[string]Sender
	inflight map[string]string // address -> operation
}

// NewManager creates a Manager issuing remote calls through client.
func NewManager(client RuleClient, opts ...Option) *Manager {
	m := &Manager{
		client:   client,
		senders:  make(map[string]Sender),
		inflight: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.WithComponent(m.logger, "filters")
	return m
}

// CreateAutoArchiveFilter makes sure an auto-archive filter exists for
// address. A sender with an active filter gets that filter back without a
// remote call.
func (m *Manager) CreateAutoArchiveFilter(ctx context.Context, address, labelID string) (mailbox.Filter, error) {
	address, err := normalize(address)
	if err != nil {
		return mailbox.Filter{}, err
	}

	current, done, err := m.begin(ctx, address, OpCreate)
	if err != nil {
		return mailbox.Filter{}, err
	}
	defer done()

	if current.ActiveFilterID != "" {
		return mailbox.Filter{
			ID:            current.ActiveFilterID,
			SenderAddress: address,
			LabelID:       current.LabelID,
			Archive:       true,
		}, nil
	}

	// Once sent, the remote call runs to completion so the cache matches the provider.
	filter, err := m.client.CreateAutoArchive(context.WithoutCancel(ctx), address, labelID)
	if err != nil {
		m.logger.Warn("auto archive filter creation failed", logging.Sender(address), logging.Err(err))
		return mailbox.Filter{}, &apperrors.RemoteRuleError{Op: OpCreate, Sender: address, Err: err}
	}

	m.update(address, func(s *Sender) {
		s.AutoArchived = true
		s.ActiveFilterID = filter.ID
		s.LabelID = filter.LabelID
	})
	m.logger.Info("auto archive filter created", logging.Sender(address), logging.Filter(filter.ID))
	return filter, nil
}

// DeleteAutoArchiveFilter removes the active filter of address. It succeeds
// without a remote call when the sender has no active filter.
func (m *Manager) DeleteAutoArchiveFilter(ctx context.Context, address string) error {
	address, err := normalize(address)
	if err != nil {
		return err
	}

	current, done, err := m.begin(ctx, address, OpDelete)
	if err != nil {
		return err
	}
	defer done()

	if current.ActiveFilterID == "" {
		return nil
	}

	if err := m.client.Delete(context.WithoutCancel(ctx), current.ActiveFilterID); err != nil {
		m.logger.Warn("auto archive filter deletion failed", logging.Sender(address), logging.Filter(current.ActiveFilterID), logging.Err(err))
		return &apperrors.RemoteRuleError{Op: OpDelete, Sender: address, Err: err}
	}

	m.update(address, clearFilter)
	m.logger.Info("auto archive filter deleted", logging.Sender(address), logging.Filter(current.ActiveFilterID))
	return nil
}

// VerifyAutoArchiveFilter reconciles the cached state of address with the
// remote filter list and returns the resulting snapshot.
func (m *Manager) VerifyAutoArchiveFilter(ctx context.Context, address string) (Sender, error) {
	address, err := normalize(address)
	if err != nil {
		return Sender{}, err
	}

	current, done, err := m.begin(ctx, address, OpVerify)
	if err != nil {
		return Sender{}, err
	}
	defer done()

	filter, found, err := m.client.FindAutoArchive(ctx, address)
	if err != nil {
		return Sender{}, &apperrors.RemoteRuleError{Op: OpVerify, Sender: address, Err: err}
	}

	switch {
	case found:
		if filter.ID != current.ActiveFilterID {
			m.logger.Info("adopted remote auto archive filter", logging.Sender(address), logging.Filter(filter.ID))
		}
		return m.update(address, func(s *Sender) {
			s.AutoArchived = true
			s.ActiveFilterID = filter.ID
			s.LabelID = filter.LabelID
		}), nil
	case current.ActiveFilterID != "":
		m.logger.Info("cached auto archive filter no longer exists", logging.Sender(address), logging.Filter(current.ActiveFilterID))
		return m.update(address, clearFilter), nil
	default:
		return m.update(address, func(*Sender) {}), nil
	}
}

// FilterSettingsLink returns the mailbox settings page where the active
// filter of address can be edited. It makes no network call.
func (m *Manager) FilterSettingsLink(address string) (string, error) {
	address, err := normalize(address)
	if err != nil {
		return "", err
	}

	s, _ := m.Sender(address)
	if s.ActiveFilterID == "" {
		return "", apperrors.NewNotConfiguredError(instrumentation.EntitySender, address, "no active auto archive filter")
	}

	return fmt.Sprintf(settingsURL, url.PathEscape(m.client.Account())), nil
}

// Discover records a sender seen in a thread listing. A non-empty
// unsubscribeLink replaces the previously recorded one.
func (m *Manager) Discover(address, unsubscribeLink string) Sender {
	address = mailbox.NormalizeAddress(address)
	if address == "" {
		return Sender{}
	}
	return m.update(address, func(s *Sender) {
		if unsubscribeLink != "" {
			s.LastUnsubscribeLink = unsubscribeLink
		}
	})
}

// Sender returns a snapshot of address. The bool is false for unknown senders,
// in which case the zero-state snapshot is returned.
func (m *Manager) Sender(address string) (Sender, bool) {
	address = mailbox.NormalizeAddress(address)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.senders[address]
	if !ok {
		return Sender{Address: address}, false
	}
	return s, true
}

// Senders returns snapshots of all known senders ordered by address.
func (m *Manager) Senders() []Sender {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Sender, 0, len(m.senders))
	for _, s := range m.senders {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// begin marks address as having op in flight and returns its current
// snapshot. The returned func clears the mark.
func (m *Manager) begin(ctx context.Context, address, op string) (Sender, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pending, ok := m.inflight[address]; ok {
		m.metrics.RecordConflict(ctx, instrumentation.EntitySender)
		return Sender{}, nil, apperrors.NewConflictError(instrumentation.EntitySender, address, pending)
	}
	m.inflight[address] = op

	s, ok := m.senders[address]
	if !ok {
		s = Sender{Address: address}
	}

	return s, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.inflight, address)
	}, nil
}

// update applies fn to the cached sender, creating it if needed, and returns the new snapshot.
func (m *Manager) update(address string, fn func(*Sender)) Sender {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.senders[address]
	if !ok {
		s = Sender{Address: address}
	}
	fn(&s)
	m.senders[address] = s
	return s
}

func clearFilter(s *Sender) {
	s.AutoArchived = false
	s.ActiveFilterID = ""
	s.LabelID = ""
}

func normalize(address string) (string, error) {
	address = mailbox.NormalizeAddress(address)
	if address == "" {
		return "", errors.New("sender address is required")
	}
	return address, nil
}
