package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
)

func newAutoArchiveCmd() *cobra.Command {
	var (
		labelID string
		disable bool
		verify  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "auto-archive <sender>",
		Short: "Archive all future mail from a sender",
		Long: `Create a mailbox filter that skips the inbox for all mail from a sender,
optionally applying a label.

Use --verify to check whether such a filter exists, and --disable to delete it.`,
		Example: `  senderwatch auto-archive news@example.com
  senderwatch auto-archive news@example.com --label Label_12
  senderwatch auto-archive news@example.com --verify
  senderwatch auto-archive news@example.com --disable`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if disable && verify {
				return fmt.Errorf("--disable and --verify cannot be combined")
			}
			sender := args[0]

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

			o := a.orchestrator
			out := cmd.OutOrStdout()

			switch {
			case verify:
				state, err := o.VerifyAutoArchiveFilter(ctx, sender)
				if err != nil {
					return err
				}
				if !state.AutoArchived {
					fmt.Fprintf(out, "%s is not auto-archived\n", state.Address)
					return nil
				}
				fmt.Fprintf(out, "%s is auto-archived by filter %s\n", state.Address, state.ActiveFilterID)

			case disable:
				if err := o.DeleteAutoArchiveFilter(ctx, sender); err != nil {
					return err
				}
				fmt.Fprintln(out, "Auto archive disabled!")

			default:
				f, err := o.CreateAutoArchiveFilter(ctx, sender, labelID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Auto archive enabled! (filter %s)\n", f.ID)
			}

			if link, err := o.FilterSettingsLink(sender); err == nil {
				fmt.Fprintf(out, "Filter settings: %s\n", link)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&labelID, "label", "", "Label ID to apply to archived mail")
	cmd.Flags().BoolVar(&disable, "disable", false, "Delete the auto-archive filter instead")
	cmd.Flags().BoolVar(&verify, "verify", false, "Only check whether the sender is auto-archived")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for the whole command")

	return cmd
}
