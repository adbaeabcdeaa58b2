package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"tailscale.com/tsnet"

	"github.com/claude/coachtrack/internal/devserver"
)

func NewDevServerCommand() *cobra.Command {
	var (
		subject string
		useTS   bool
	)
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Serve an in-memory coaching API for local development",
		Long: `Serves the client API from memory with a seeded program. A one-time login
link is printed on startup; exchange it with "coachtrack login".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			srv := devserver.New(log)

			// tsnet or plain HTTP
			var listener net.Listener
			base := "http://" + cfg.DevServer.Addr()
			if useTS {
				ts := &tsnet.Server{
					Hostname: cfg.Tailscale.Hostname,
					Dir:      cfg.Tailscale.StateDir,
					Logf:     func(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) },
				}
				if err := ts.Start(); err != nil {
					return fmt.Errorf("tsnet start: %w", err)
				}
				defer ts.Close()

				listener, err = ts.Listen("tcp", ":80")
				if err != nil {
					return fmt.Errorf("tsnet listen: %w", err)
				}
				base = "http://" + cfg.Tailscale.Hostname
				log.Info("dev server starting on tailnet", "hostname", cfg.Tailscale.Hostname)
			} else {
				listener, err = net.Listen("tcp", cfg.DevServer.Addr())
				if err != nil {
					return fmt.Errorf("listen on %s: %w", cfg.DevServer.Addr(), err)
				}
				log.Info("dev server starting", "addr", listener.Addr().String())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Login link: %s/login?token=%s\n", base, srv.IssueLoginLink(subject))

			httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			// Graceful shutdown
			select {
			case <-cmd.Context().Done():
				log.Info("shutting down")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("serving: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown error", "error", err)
			}
			log.Info("dev server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "client-1", "client the printed login link signs in as")
	cmd.Flags().BoolVar(&useTS, "tailscale", false, "listen on the tailnet instead of devserver.host:port")
	return cmd
}
