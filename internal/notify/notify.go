package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/senderwatch/internal/logging"
)

// Outcome of a notified operation.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Event is one notification.
type Event struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	Subject   string    `json:"subject,omitempty"` // sender address or thread ID
	At        time.Time `json:"at"`
}

// NewEvent creates an Event with a fresh ID and the current time.
func NewEvent(operation, outcome, message, subject string) Event {
	return Event{
		ID:        uuid.NewString(),
		Operation: operation,
		Outcome:   outcome,
		Message:   message,
		Subject:   subject,
		At:        time.Now().UTC(),
	}
}

// Sink receives notifications. Notify must not block.
type Sink interface {
	Notify(Event)
}

// Publisher delivers a single event, possibly blocking.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogSink writes events to a logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.WithComponent(logger, "notify")}
}

// Notify implements Sink.
func (s *LogSink) Notify(e Event) {
	level := slog.LevelInfo
	if e.Outcome == OutcomeFailure {
		level = slog.LevelWarn
	}
	s.logger.LogAttrs(context.Background(), level, e.Message,
		slog.String("event_id", e.ID),
		logging.Operation(e.Operation),
		logging.Status(e.Outcome),
	)
}

// Fanout forwards every event to all sinks.
type Fanout []Sink

// Notify implements Sink.
func (f Fanout) Notify(e Event) {
	for _, s := range f {
		if s != nil {
			s.Notify(e)
		}
	}
}

// Discard drops all events.
type Discard struct{}

// Notify implements Sink.
func (Discard) Notify(Event) {}
