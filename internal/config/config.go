package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	State     StateConfig     `yaml:"state"`
	Log       LogConfig       `yaml:"log"`
	Sync      SyncConfig      `yaml:"sync"`
	Cache     CacheConfig     `yaml:"cache"`
	Workout   WorkoutConfig   `yaml:"workout"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	DevServer DevServerConfig `yaml:"devserver"`
}

type APIConfig struct {
	Root       string        `yaml:"root"`
	PathPrefix string        `yaml:"path_prefix"`
	Timeout    time.Duration `yaml:"timeout"`
}

type StateConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type SyncConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

type CacheConfig struct {
	SizeMB int `yaml:"size_mb"`
}

type WorkoutConfig struct {
	CompleteDelay time.Duration `yaml:"complete_delay"`
}

// TailscaleConfig routes API traffic through an embedded tailnet node.
type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type DevServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr is the dev server listen address.
func (d DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// URL is the API root of the coaching service.
func (a APIConfig) URL() string {
	return strings.TrimRight(a.Root, "/")
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Root:       "http://127.0.0.1:8787",
			PathPrefix: "/api/client",
			Timeout:    15 * time.Second,
		},
		State:     StateConfig{Dir: defaultStateDir()},
		Log:       LogConfig{Level: "info"},
		Sync:      SyncConfig{ProbeInterval: 15 * time.Second},
		Cache:     CacheConfig{SizeMB: 8},
		Workout:   WorkoutConfig{CompleteDelay: 3 * time.Second},
		Tailscale: TailscaleConfig{Hostname: "coachtrack"},
		DevServer: DevServerConfig{Host: "127.0.0.1", Port: 8787},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "coachtrack")
	}
	return ".coachtrack"
}

// Load reads config from a YAML file on top of the defaults, then applies
// environment variable overrides. An empty path skips the file.
// Env vars use the prefix COACHTRACK_ and underscore-separated paths:
//
//	COACHTRACK_API_ROOT, COACHTRACK_API_PATH_PREFIX, COACHTRACK_API_TIMEOUT,
//	COACHTRACK_STATE_DIR, COACHTRACK_LOG_LEVEL, COACHTRACK_SYNC_PROBE_INTERVAL,
//	COACHTRACK_CACHE_SIZE_MB, COACHTRACK_TAILSCALE_ENABLED,
//	COACHTRACK_TAILSCALE_HOSTNAME, COACHTRACK_TAILSCALE_STATE_DIR,
//	COACHTRACK_DEVSERVER_HOST, COACHTRACK_DEVSERVER_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COACHTRACK_API_ROOT"); v != "" {
		cfg.API.Root = v
	}
	if v := os.Getenv("COACHTRACK_API_PATH_PREFIX"); v != "" {
		cfg.API.PathPrefix = v
	}
	if v := os.Getenv("COACHTRACK_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = d
		}
	}
	if v := os.Getenv("COACHTRACK_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("COACHTRACK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("COACHTRACK_SYNC_PROBE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.ProbeInterval = d
		}
	}
	if v := os.Getenv("COACHTRACK_CACHE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.SizeMB = n
		}
	}
	if v := os.Getenv("COACHTRACK_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("COACHTRACK_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("COACHTRACK_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("COACHTRACK_DEVSERVER_HOST"); v != "" {
		cfg.DevServer.Host = v
	}
	if v := os.Getenv("COACHTRACK_DEVSERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DevServer.Port = port
		}
	}
}

func (c *Config) validate() error {
	if c.API.Root == "" {
		return fmt.Errorf("api.root is required")
	}
	if !strings.HasPrefix(c.API.Root, "http://") && !strings.HasPrefix(c.API.Root, "https://") {
		return fmt.Errorf("api.root must be an http or https URL, got %q", c.API.Root)
	}
	if c.API.PathPrefix != "" && !strings.HasPrefix(c.API.PathPrefix, "/") {
		return fmt.Errorf("api.path_prefix must start with /")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir is required")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Sync.ProbeInterval <= 0 {
		return fmt.Errorf("sync.probe_interval must be positive")
	}
	if c.Cache.SizeMB <= 0 {
		return fmt.Errorf("cache.size_mb must be positive")
	}
	if c.Workout.CompleteDelay < 0 {
		return fmt.Errorf("workout.complete_delay must not be negative")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.DevServer.Port <= 0 || c.DevServer.Port > 65535 {
		return fmt.Errorf("devserver.port must be between 1 and 65535")
	}
	return nil
}
