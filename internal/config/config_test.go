package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
api:
  root: "https://coach.example.com"
  path_prefix: "/api/client"
  timeout: 20s
state:
  dir: "/var/lib/coachtrack"
log:
  level: debug
sync:
  probe_interval: 30s
cache:
  size_mb: 16
tailscale:
  enabled: true
  hostname: "coachtrack-phone"
  state_dir: "/var/lib/coachtrack/tsnet"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields populated.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.URL() != "https://coach.example.com" {
		t.Errorf("api.root = %q", cfg.API.Root)
	}
	if cfg.API.Timeout != 20*time.Second {
		t.Errorf("api.timeout = %v, want 20s", cfg.API.Timeout)
	}
	if cfg.State.Dir != "/var/lib/coachtrack" {
		t.Errorf("state.dir = %q", cfg.State.Dir)
	}
	if cfg.Sync.ProbeInterval != 30*time.Second {
		t.Errorf("sync.probe_interval = %v, want 30s", cfg.Sync.ProbeInterval)
	}
	if cfg.Cache.SizeMB != 16 {
		t.Errorf("cache.size_mb = %d, want 16", cfg.Cache.SizeMB)
	}
	if !cfg.Tailscale.Enabled || cfg.Tailscale.Hostname != "coachtrack-phone" {
		t.Errorf("tailscale = %+v", cfg.Tailscale)
	}
	if lvl, _ := cfg.Log.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", lvl)
	}
	// Unset sections keep their defaults
	if cfg.DevServer.Port != 8787 || cfg.Workout.CompleteDelay != 3*time.Second {
		t.Errorf("defaults lost: devserver = %+v, workout = %+v", cfg.DevServer, cfg.Workout)
	}
}

// TestLoadNoFile verifies that an empty path yields the defaults.
func TestLoadNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.PathPrefix != "/api/client" || cfg.Sync.ProbeInterval != 15*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
}

// TestEnvOverride verifies that COACHTRACK_ env vars take precedence over YAML values.
func TestEnvOverride(t *testing.T) {
	t.Setenv("COACHTRACK_API_ROOT", "http://localhost:9000")
	t.Setenv("COACHTRACK_CACHE_SIZE_MB", "4")
	t.Setenv("COACHTRACK_SYNC_PROBE_INTERVAL", "5s")
	t.Setenv("COACHTRACK_TAILSCALE_ENABLED", "false")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.Root != "http://localhost:9000" {
		t.Errorf("api.root = %q", cfg.API.Root)
	}
	if cfg.Cache.SizeMB != 4 {
		t.Errorf("cache.size_mb = %d, want 4", cfg.Cache.SizeMB)
	}
	if cfg.Sync.ProbeInterval != 5*time.Second {
		t.Errorf("sync.probe_interval = %v, want 5s", cfg.Sync.ProbeInterval)
	}
	if cfg.Tailscale.Enabled {
		t.Error("tailscale.enabled = true, want env override false")
	}
	// Unchanged fields should keep YAML values
	if cfg.State.Dir != "/var/lib/coachtrack" {
		t.Errorf("state.dir = %q", cfg.State.Dir)
	}
}

// TestValidation verifies that bad values produce an error instead of a half-working client.
func TestValidation(t *testing.T) {
	cases := map[string]string{
		"relative root":   "api:\n  root: coach.example.com\n",
		"bad prefix":      "api:\n  path_prefix: api/client\n",
		"zero timeout":    "api:\n  timeout: 0s\n",
		"unknown level":   "log:\n  level: loud\n",
		"zero cache":      "cache:\n  size_mb: 0\n",
		"tailnet no name": "tailscale:\n  enabled: true\n  hostname: \"\"\n",
		"bad port":        "devserver:\n  port: 70000\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeTemp(t, content)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestLoadMissingFile verifies that a missing config file returns a clear error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
