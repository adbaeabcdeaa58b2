package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"

	"github.com/claude/coachtrack/internal/app"
	"github.com/claude/coachtrack/internal/config"
	"github.com/claude/coachtrack/internal/kv"
	"github.com/claude/coachtrack/internal/netstatus"
)

// env is the client stack for one command invocation.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	app     *app.App
	closers []io.Closer
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, log, nil
}

// setup opens local state, builds the stack and takes one connectivity
// reading. Callers must Close the env.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log}

	store, err := kv.Open(cfg.State.Dir)
	if err != nil {
		return nil, fmt.Errorf("opening local state: %w", err)
	}
	e.closers = append(e.closers, store)

	hc := &http.Client{Timeout: cfg.API.Timeout}
	if cfg.Tailscale.Enabled {
		ts := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
			Logf:     func(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) },
		}
		if err := ts.Start(); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("tsnet start: %w", err)
		}
		e.closers = append(e.closers, ts)
		hc = ts.HTTPClient()
		hc.Timeout = cfg.API.Timeout
		log.Debug("routing API traffic through tailnet", "hostname", cfg.Tailscale.Hostname)
	}

	prober := &netstatus.HTTPProber{URL: cfg.API.URL() + "/healthz", Client: hc}
	e.app = app.New(cfg, app.Deps{
		Store:      store,
		HTTPClient: hc,
		Prober:     prober,
		OnUnauthorized: func() {
			log.Warn("credential rejected by the server, run `coachtrack login` with a new link")
		},
		Log: log,
	})

	if offline {
		e.app.Monitor.Set(false)
	} else {
		e.app.Monitor.Set(prober.Probe(cmd.Context()))
	}
	return e, nil
}

// Close releases local state and the tailnet node.
func (e *env) Close() error {
	var err error
	for i := len(e.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, e.closers[i].Close())
	}
	return err
}

// withEnv wraps a command body with setup and teardown.
func withEnv(run func(ctx context.Context, cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, e.Close()) }()
		return run(cmd.Context(), cmd, e, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
