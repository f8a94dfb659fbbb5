package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teemow/senderwatch/internal/logging"
	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/stats"
)

const (
	// DefaultInterval is used when Config.Interval is zero.
	DefaultInterval = 15 * time.Minute

	// MinInterval is the finest interval cron can schedule.
	MinInterval = time.Second
)

// Refresher is the subset of the orchestrator the scheduler drives.
type Refresher interface {
	ListThreads(ctx context.Context, q mailbox.ThreadQuery) ([]mailbox.Thread, error)
	SenderStats(ctx context.Context, q stats.Query) ([]stats.Bucket, error)
}

// Recorder stores observed messages for a local analytics backend.
type Recorder interface {
	Record(ctx context.Context, messageID, sender string, receivedAt time.Time) error
}

// Config configures a Scheduler.
type Config struct {
	Interval time.Duration
	Senders  []string
	Period   stats.Period

	// Recorder, when set, receives the latest message of every listed
	// thread before the stats are queried.
	Recorder Recorder
}

// Snapshot is the result of the latest successful refresh of a sender.
type Snapshot struct {
	Sender      string         `json:"sender"`
	Period      stats.Period   `json:"period"`
	Buckets     []stats.Bucket `json:"buckets"`
	Total       int64          `json:"total"`
	Threads     int            `json:"threads"`
	RefreshedAt time.Time      `json:"refreshedAt"`
}

// Scheduler re-queries the watched senders on a fixed interval.
type Scheduler struct {
	refresher Refresher
	recorder  Recorder
	senders   []string
	period    stats.Period
	interval  time.Duration
	logger    *slog.Logger
	nowFn     func() time.Time

	mu        sync.Mutex
	cron      *cron.Cron
	cancel    context.CancelFunc
	snapshots map[string]Snapshot
}

// NewScheduler validates cfg and creates a stopped Scheduler.
func NewScheduler(r Refresher, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if r == nil {
		return nil, errors.New("refresher is required")
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	if interval < MinInterval {
		return nil, fmt.Errorf("refresh interval %s is below the minimum of %s", interval, MinInterval)
	}

	period := cfg.Period
	if period == "" {
		period = stats.PeriodWeek
	}
	period, err := stats.ParsePeriod(string(period))
	if err != nil {
		return nil, err
	}

	senders := make([]string, 0, len(cfg.Senders))
	seen := make(map[string]bool, len(cfg.Senders))
	for _, s := range cfg.Senders {
		s = mailbox.NormalizeAddress(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		senders = append(senders, s)
	}

	return &Scheduler{
		refresher: r,
		recorder:  cfg.Recorder,
		senders:   senders,
		period:    period,
		interval:  interval,
		logger:    logging.WithComponent(logger, "refresh"),
		nowFn:     time.Now,
		snapshots: make(map[string]Snapshot),
	}, nil
}

// Spec returns the cron schedule the scheduler runs on.
func (s *Scheduler) Spec() string {
	return "@every " + s.interval.String()
}

// Senders returns the watched senders.
func (s *Scheduler) Senders() []string {
	return append([]string(nil), s.senders...)
}

// Start schedules the refresh job. A run still in progress when the next
// tick fires is not overlapped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	log := cronLogger{logger: logging.NewSlogAdapter(s.logger)}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.SkipIfStillRunning(log), cron.Recover(log)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := c.AddFunc(s.Spec(), func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("refresh finished with errors", logging.Err(err))
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.logger.Info("refresh scheduler started",
		slog.String("schedule", s.Spec()),
		slog.Int("senders", len(s.senders)))
	return nil
}

// Stop cancels a running refresh and waits for it to return or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	cancel()
	select {
	case <-c.Stop().Done():
		s.logger.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce refreshes every watched sender. A failing sender does not stop
// the others; all failures are returned joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, sender := range s.senders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.refreshSender(ctx, sender); err != nil {
			s.logger.Warn("failed to refresh sender", logging.Sender(sender), logging.Err(err))
			errs = append(errs, fmt.Errorf("refresh %s: %w", logging.AnonymizeSender(sender), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) refreshSender(ctx context.Context, sender string) error {
	start := time.Now()

	threads, err := s.refresher.ListThreads(ctx, mailbox.ThreadQuery{Sender: sender, InboxOnly: true})
	if err != nil {
		return err
	}
	if s.recorder != nil {
		if err := RecordThreads(ctx, s.recorder, threads); err != nil {
			return err
		}
	}

	q, err := stats.NewQuery(sender, s.period, time.Time{}, s.nowFn())
	if err != nil {
		return err
	}
	buckets, err := s.refresher.SenderStats(ctx, q)
	if err != nil {
		return err
	}

	snap := Snapshot{
		Sender:      sender,
		Period:      s.period,
		Buckets:     buckets,
		Total:       stats.Total(buckets),
		Threads:     len(threads),
		RefreshedAt: s.nowFn().UTC(),
	}

	s.mu.Lock()
	s.snapshots[sender] = snap
	s.mu.Unlock()

	s.logger.Debug("refreshed sender",
		logging.Sender(sender),
		slog.Int64("total", snap.Total),
		slog.Int("threads", snap.Threads),
		slog.Duration(logging.KeyDuration, time.Since(start)))
	return nil
}

// RecordThreads stores the latest message of each thread. The message key
// combines the thread ID and its timestamp, so recording the same threads
// again adds nothing new.
func RecordThreads(ctx context.Context, recorder Recorder, threads []mailbox.Thread) error {
	for _, t := range threads {
		if t.LastMessageAt.IsZero() {
			continue
		}
		id := fmt.Sprintf("%s:%d", t.ID, t.LastMessageAt.UnixMilli())
		if err := recorder.Record(ctx, id, t.SenderAddress, t.LastMessageAt); err != nil {
			return fmt.Errorf("failed to record thread %s: %w", t.ID, err)
		}
	}
	return nil
}

// Snapshot returns the latest refresh result for sender.
func (s *Scheduler) Snapshot(sender string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[mailbox.NormalizeAddress(sender)]
	return snap, ok
}

// Snapshots returns all refresh results ordered by sender.
func (s *Scheduler) Snapshots() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Snapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sender < out[j].Sender })
	return out
}
