package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath string
	offline    bool
	logLevel   string
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "coachtrack",
		Short: "Offline-first client for your coaching program",
		Long: `coachtrack shows today's training and nutrition plan, runs workout sessions
in the terminal and logs meals, weight and measurements. Changes made while
offline are queued and replayed when the coaching API is reachable again.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "treat the API as unreachable and queue every change")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	rootCmd.AddCommand(
		NewLoginCommand(),
		NewLogoutCommand(),
		NewTodayCommand(),
		NewShowCommand(),
		NewWorkoutCommand(),
		NewLogCommand(),
		NewUploadPhotoCommand(),
		NewCheckinCommand(),
		NewPendingCommand(),
		NewSyncCommand(),
		NewDevServerCommand(),
		NewVersionCommand(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "coachtrack", Version)
		},
	}
}
