// Package mailboxtest provides an in-memory mailbox.API for tests.
package mailboxtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/teemow/senderwatch/internal/mailbox"
)

// Operation names used for call counting and error injection.
const (
	OpCreateFilter = "create_filter"
	OpDeleteFilter = "delete_filter"
	OpListFilters  = "list_filters"
	OpListLabels   = "list_labels"
	OpListThreads  = "list_threads"
	OpSetRead      = "set_read"
	OpTrash        = "trash"
)

// Fake is an in-memory mailbox. All methods are safe for concurrent use.
type Fake struct {
	AccountName string

	mu      sync.Mutex
	filters map[string]mailbox.Filter
	labels  []mailbox.Label
	threads map[string]mailbox.Thread
	nextID  int
	calls   map[string]int
	errs    map[string][]error
	gates   map[string]chan struct{}
	entered map[string]chan struct{}
}

// New creates an empty Fake for account "me".
func New() *Fake {
	return &Fake{
		AccountName: "me",
		filters:     make(map[string]mailbox.Filter),
		threads:     make(map[string]mailbox.Thread),
		calls:       make(map[string]int),
		errs:        make(map[string][]error),
		gates:       make(map[string]chan struct{}),
		entered:     make(map[string]chan struct{}),
	}
}

// Account implements mailbox.API.
func (f *Fake) Account() string {
	return f.AccountName
}

// FailNext queues errors returned by the next calls of op, one per call.
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], errs...)
}

// Block makes calls of op wait until the returned release function is called.
// The entered channel receives a value each time a call starts waiting.
func (f *Fake) Block(op string) (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	in := make(chan struct{}, 16)
	f.gates[op] = gate
	f.entered[op] = in
	var once sync.Once
	return in, func() { once.Do(func() { close(gate) }) }
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// AddFilter stores a filter as if it had been created remotely.
func (f *Fake) AddFilter(filter mailbox.Filter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters[filter.ID] = filter
}

// Filters returns the stored filters ordered by ID.
func (f *Fake) Filters() []mailbox.Filter {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]mailbox.Filter, 0, len(f.filters))
	for _, filter := range f.filters {
		out = append(out, filter)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddLabel stores a label.
func (f *Fake) AddLabel(l mailbox.Label) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels = append(f.labels, l)
}

// AddThread stores a thread.
func (f *Fake) AddThread(t mailbox.Thread) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[t.ID] = t
}

// RemoteThread returns the remote state of a thread.
func (f *Fake) RemoteThread(id string) (mailbox.Thread, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[id]
	return t, ok
}

// enter counts the call, waits on a gate if one is set and pops an injected error.
func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	in := f.entered[op]
	f.mu.Unlock()

	if gate != nil {
		in <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if queued := f.errs[op]; len(queued) > 0 {
		err := queued[0]
		f.errs[op] = queued[1:]
		return err
	}
	return nil
}

// CreateFilter implements mailbox.API.
func (f *Fake) CreateFilter(ctx context.Context, spec mailbox.FilterSpec) (mailbox.Filter, error) {
	if err := f.enter(ctx, OpCreateFilter); err != nil {
		return mailbox.Filter{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	filter := mailbox.Filter{
		ID:            fmt.Sprintf("filter-%d", f.nextID),
		SenderAddress: spec.SenderAddress,
		LabelID:       spec.LabelID,
		Archive:       spec.Archive,
	}
	f.filters[filter.ID] = filter
	return filter, nil
}

// DeleteFilter implements mailbox.API.
func (f *Fake) DeleteFilter(ctx context.Context, id string) error {
	if err := f.enter(ctx, OpDeleteFilter); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.filters, id)
	return nil
}

// ListFilters implements mailbox.API.
func (f *Fake) ListFilters(ctx context.Context) ([]mailbox.Filter, error) {
	if err := f.enter(ctx, OpListFilters); err != nil {
		return nil, err
	}
	return f.Filters(), nil
}

// ListLabels implements mailbox.API.
func (f *Fake) ListLabels(ctx context.Context) ([]mailbox.Label, error) {
	if err := f.enter(ctx, OpListLabels); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailbox.Label(nil), f.labels...), nil
}

// ListThreads implements mailbox.API.
func (f *Fake) ListThreads(ctx context.Context, q mailbox.ThreadQuery) ([]mailbox.Thread, error) {
	if err := f.enter(ctx, OpListThreads); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]mailbox.Thread, 0, len(f.threads))
	for _, t := range f.threads {
		if q.Sender != "" && mailbox.NormalizeAddress(t.SenderAddress) != mailbox.NormalizeAddress(q.Sender) {
			continue
		}
		if t.IsTrashed && !q.IncludeTrashed {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SetRead implements mailbox.API.
func (f *Fake) SetRead(ctx context.Context, threadID string, read bool) error {
	if err := f.enter(ctx, OpSetRead); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.threads[threadID]
	t.ID = threadID
	t.IsRead = read
	f.threads[threadID] = t
	return nil
}

// Trash implements mailbox.API.
func (f *Fake) Trash(ctx context.Context, threadID string) error {
	if err := f.enter(ctx, OpTrash); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.threads[threadID]
	t.ID = threadID
	t.IsTrashed = true
	f.threads[threadID] = t
	return nil
}

var _ mailbox.API = (*Fake)(nil)
