package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/senderwatch/internal/mailbox"
	"github.com/teemow/senderwatch/internal/refresh"
	"github.com/teemow/senderwatch/internal/stats"
	"github.com/teemow/senderwatch/internal/tools/common"
)

// statsReport is the JSON shape printed by the stats command.
type statsReport struct {
	Sender  string         `json:"sender"`
	Period  stats.Period   `json:"period"`
	Start   time.Time      `json:"start"`
	End     time.Time      `json:"end"`
	Total   int64          `json:"total"`
	Buckets []stats.Bucket `json:"buckets"`
}

func newStatsCmd() *cobra.Command {
	var (
		period    string
		start     string
		end       string
		asJSON    bool
		syncFirst bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats <sender>",
		Short: "Show how many messages a sender sent per period",
		Long: `Count the messages received from a sender per day, week or month.
Periods without messages are listed with a count of 0.

Dates are RFC3339 or YYYY-MM-DD; an end date includes the whole day.
Without --start the range covers the last 30 days, 12 weeks or 12 months.`,
		Example: `  senderwatch stats news@example.com
  senderwatch stats news@example.com --period day --start 2024-03-01 --end 2024-03-31
  senderwatch stats news@example.com --period month --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildStatsQuery(args[0], period, start, end)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := newApp(ctx, cfg, nil, slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			if a.recorder != nil && syncFirst {
				if err := syncSender(ctx, a, q.Sender()); err != nil {
					return err
				}
			}

			buckets, err := a.orchestrator.SenderStats(ctx, q)
			if err != nil {
				return err
			}

			report := statsReport{
				Sender:  q.Sender(),
				Period:  q.Period(),
				Start:   q.Start(),
				End:     q.End(),
				Total:   stats.Total(buckets),
				Buckets: buckets,
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printStats(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&period, "period", string(stats.PeriodWeek), "Bucket size: day, week or month")
	cmd.Flags().StringVar(&start, "start", "", "Range start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Range end (RFC3339 or YYYY-MM-DD, default: now)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&syncFirst, "sync", true, "Record the sender's threads in the local store first (sqlite backend only)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for the whole command")

	return cmd
}

// syncSender records every listed thread of sender in the local analytics store.
func syncSender(ctx context.Context, a *app, sender string) error {
	threads, err := a.orchestrator.ListThreads(ctx, mailbox.ThreadQuery{Sender: sender, IncludeTrashed: true})
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}
	return refresh.RecordThreads(ctx, a.recorder, threads)
}

func buildStatsQuery(sender, period, start, end string) (stats.Query, error) {
	p, err := stats.ParsePeriod(period)
	if err != nil {
		return stats.Query{}, err
	}

	var from, to time.Time
	if start != "" {
		if from, _, err = common.ParseTime("start", start); err != nil {
			return stats.Query{}, err
		}
	}
	if end != "" {
		if to, err = common.ParseEndTime("end", end); err != nil {
			return stats.Query{}, err
		}
	}
	return stats.NewQuery(sender, p, from, to)
}

// printStats renders one line per bucket followed by the total.
func printStats(w io.Writer, r statsReport) error {
	layout := time.DateOnly
	if r.Period == stats.PeriodMonth {
		layout = "2006-01"
	}

	fmt.Fprintf(w, "Messages from %s per %s\n\n", r.Sender, r.Period)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PERIOD\tCOUNT")
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "%s\t%d\n", b.PeriodStart.Format(layout), b.Count)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", r.Total)
	return tw.Flush()
}
