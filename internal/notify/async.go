package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teemow/senderwatch/internal/logging"
)

// DefaultBuffer is the queue size of an AsyncSink when none is configured.
const DefaultBuffer = 64

// publishTimeout bounds a single Publish call made by the worker.
const publishTimeout = 10 * time.Second

// AsyncSink queues events for a Publisher. Notify never blocks: when the
// queue is full the event is dropped and logged.
type AsyncSink struct {
	publisher Publisher
	logger    *slog.Logger
	queue     chan Event
	dropped   atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncSink starts a worker delivering queued events to publisher.
func NewAsyncSink(publisher Publisher, buffer int, logger *slog.Logger) *AsyncSink {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &AsyncSink{
		publisher: publisher,
		logger:    logging.WithComponent(logger, "notify.async"),
		queue:     make(chan Event, buffer),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

// Notify implements Sink. Events arriving after Close are dropped.
func (s *AsyncSink) Notify(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		s.logger.Warn("notification queue closed, dropping event",
			slog.String("event_id", e.ID), logging.Operation(e.Operation))
		return
	}

	select {
	case s.queue <- e:
	default:
		s.dropped.Add(1)
		s.logger.Warn("notification queue full, dropping event",
			slog.String("event_id", e.ID), logging.Operation(e.Operation))
	}
}

// Dropped returns the number of events dropped because the queue was full
// or already closed.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits until the queue is drained or ctx is done.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for e := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Error("failed to publish notification",
				slog.String("event_id", e.ID), logging.Operation(e.Operation), logging.Err(err))
		}
		cancel()
	}
}
