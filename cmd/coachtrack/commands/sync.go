package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewPendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List changes waiting to sync",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			pending, err := e.app.Queue.Pending()
			if err != nil {
				return fmt.Errorf("reading queue: %w", err)
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing waiting to sync.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUEUED\tMETHOD\tENDPOINT\tID")
			for _, m := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.Time(m.Timestamp), m.Method, m.Endpoint, m.ID)
			}
			return tw.Flush()
		}),
	}
}

func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued changes now",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			if !e.app.Monitor.Online() {
				return errors.New("the API is unreachable, queued changes are kept")
			}
			stats := e.app.Syncer.Sync(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d, dropped %d, kept %d.\n", stats.Replayed, stats.Dropped, stats.Retained)
			if stats.Retained > 0 && !e.app.Creds.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Sign in again with `coachtrack login` to sync the rest.")
			}
			return nil
		}),
	}
}
