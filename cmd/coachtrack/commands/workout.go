package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/claude/coachtrack/internal/tui"
)

func NewWorkoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "workout",
		Short: "Run today's workout session",
		Long: `Opens today's session in the terminal. Log sets as "weight reps [rpe]",
move between exercises with the arrow keys or a mouse drag, and press f to
finish. A session finished offline is queued and sent once you reconnect.`,
		Args: cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			g, ctx := errgroup.WithContext(ctx)
			if !offline {
				g.Go(func() error {
					e.app.Run(ctx)
					return nil
				})
			}
			g.Go(func() error {
				defer cancel()
				return tui.Run(ctx, e.app.NewSession, os.Stdout)
			})
			return g.Wait()
		}),
	}
}
