package mailbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/teemow/senderwatch/internal/instrumentation"
	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/retry"
)

// FilterClient issues typed filter and label calls against the mailbox.
//
// Creation is duplicate-safe: before a retried create, and when the provider
// reports the filter already exists, the client looks for an existing
// auto-archive filter for the sender and adopts it instead of creating another.
type FilterClient struct {
	caller
}

// NewFilterClient creates a FilterClient for api.
func NewFilterClient(api API, opts ...Option) *FilterClient {
	return &FilterClient{caller: newCaller(api, "mailbox.filters", opts...)}
}

// Account returns the mailbox identity.
func (c *FilterClient) Account() string {
	return c.api.Account()
}

// CreateAutoArchive creates a filter that archives all mail from address and
// optionally applies labelID. It never leaves two auto-archive filters for
// the same sender behind.
func (c *FilterClient) CreateAutoArchive(ctx context.Context, address, labelID string) (Filter, error) {
	address = NormalizeAddress(address)
	spec := FilterSpec{SenderAddress: address, LabelID: labelID, Archive: true}

	var created Filter
	attempt := 0
	err := c.do(ctx, instrumentation.OperationCreateFilter, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			// The first response may have been lost after the provider stored the filter.
			if existing, ok, err := c.find(ctx, address); err == nil && ok {
				created = existing
				return nil
			}
		}
		f, err := c.api.CreateFilter(ctx, spec)
		if err != nil {
			return err
		}
		created = f
		return nil
	})

	if err != nil && isAlreadyExists(err) {
		existing, ok, findErr := c.FindAutoArchive(ctx, address)
		if findErr == nil && ok {
			c.logger.Info("adopted existing auto archive filter", logging.Sender(address), logging.Filter(existing.ID))
			return existing, nil
		}
	}
	if err != nil {
		return Filter{}, fmt.Errorf("failed to create filter: %w", err)
	}

	if created.SenderAddress == "" {
		created.SenderAddress = address
	}
	if created.LabelID == "" {
		created.LabelID = labelID
	}
	created.Archive = true
	return created, nil
}

// Delete removes the filter with the given ID. A filter the provider no
// longer knows about is treated as deleted.
func (c *FilterClient) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, instrumentation.OperationDeleteFilter, func(ctx context.Context) error {
		return c.api.DeleteFilter(ctx, id)
	})
	if err != nil && retry.IsNotFound(err) {
		c.logger.Debug("filter already gone", logging.Filter(id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete filter %s: %w", id, err)
	}
	return nil
}

// List returns all filters of the mailbox.
func (c *FilterClient) List(ctx context.Context) ([]Filter, error) {
	var filters []Filter
	err := c.do(ctx, instrumentation.OperationListFilters, func(ctx context.Context) error {
		var err error
		filters, err = c.api.ListFilters(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	return filters, nil
}

// FindAutoArchive looks up the auto-archive filter for address.
func (c *FilterClient) FindAutoArchive(ctx context.Context, address string) (Filter, bool, error) {
	filters, err := c.List(ctx)
	if err != nil {
		return Filter{}, false, err
	}
	f, ok := pickAutoArchive(filters, address)
	return f, ok, nil
}

// find is FindAutoArchive without its own span and retry, for use inside a retried call.
func (c *FilterClient) find(ctx context.Context, address string) (Filter, bool, error) {
	filters, err := c.api.ListFilters(ctx)
	if err != nil {
		return Filter{}, false, err
	}
	f, ok := pickAutoArchive(filters, address)
	return f, ok, nil
}

// Labels returns all labels of the mailbox.
func (c *FilterClient) Labels(ctx context.Context) ([]Label, error) {
	var labels []Label
	err := c.do(ctx, instrumentation.OperationListLabels, func(ctx context.Context) error {
		var err error
		labels, err = c.api.ListLabels(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return labels, nil
}

func pickAutoArchive(filters []Filter, address string) (Filter, bool) {
	for _, f := range filters {
		if f.IsAutoArchiveFor(address) {
			return f, true
		}
	}
	return Filter{}, false
}

func isAlreadyExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
