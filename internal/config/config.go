// Package config provides configuration management for the clip marker
// agent. Configuration is loaded from environment variables with sensible
// defaults; hotkey bindings come from an optional YAML file in the data
// directory.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort           = 8788
	DefaultLogLevel       = "info"
	DefaultDataDir        = ".clipmarker"
	DefaultBackendURL     = "http://127.0.0.1:5000"
	DefaultBackendTimeout = 10 // seconds
	DefaultQueueSize      = 64

	// Environment variable names
	EnvPort           = "CLIPMARKER_PORT"
	EnvLogLevel       = "CLIPMARKER_LOG_LEVEL"
	EnvDataDir        = "CLIPMARKER_DATA_DIR"
	EnvBackendURL     = "CLIPMARKER_BACKEND_URL"
	EnvBackendTimeout = "CLIPMARKER_BACKEND_TIMEOUT"
	EnvHeadless       = "CLIPMARKER_HEADLESS"
	EnvHotkeys        = "CLIPMARKER_HOTKEYS"
	EnvQueueSize      = "CLIPMARKER_QUEUE_SIZE"

	// Database filename
	DBFilename = "clipmarker.db"

	// HotkeysFilename is the optional binding override file.
	HotkeysFilename = "hotkeys.yaml"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	HotkeysPath() string
	BackendURL() string
	BackendTimeout() time.Duration
	Headless() bool
	HotkeysEnabled() bool
	QueueSize() int
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	backendURL     string
	backendTimeout time.Duration
	headless       bool
	hotkeys        bool
	queueSize      int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		backendURL:     DefaultBackendURL,
		backendTimeout: DefaultBackendTimeout * time.Second,
		hotkeys:        true,
		queueSize:      DefaultQueueSize,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if bu := os.Getenv(EnvBackendURL); bu != "" {
		u, err := url.Parse(bu)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid %s: %q is not an http(s) URL", EnvBackendURL, bu)
		}
		cfg.backendURL = bu
	}

	if bt := os.Getenv(EnvBackendTimeout); bt != "" {
		secs, err := strconv.Atoi(bt)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvBackendTimeout, err)
		}
		if secs < 1 {
			return nil, fmt.Errorf("invalid %s: timeout must be at least 1 second", EnvBackendTimeout)
		}
		cfg.backendTimeout = time.Duration(secs) * time.Second
	}

	var err error
	if cfg.headless, err = envBool(EnvHeadless, false); err != nil {
		return nil, err
	}
	if cfg.hotkeys, err = envBool(EnvHotkeys, true); err != nil {
		return nil, err
	}

	if qs := os.Getenv(EnvQueueSize); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvQueueSize, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("invalid %s: queue size must be positive", EnvQueueSize)
		}
		cfg.queueSize = n
	}

	return cfg, nil
}

func envBool(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

// Port returns the control API port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// HotkeysPath returns the path of the optional hotkey binding file
func (c *EnvConfig) HotkeysPath() string {
	return filepath.Join(c.dataDir, HotkeysFilename)
}

func (c *EnvConfig) BackendURL() string {
	return c.backendURL
}

func (c *EnvConfig) BackendTimeout() time.Duration {
	return c.backendTimeout
}

// Headless reports whether the tray is disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) HotkeysEnabled() bool {
	return c.hotkeys
}

func (c *EnvConfig) QueueSize() int {
	return c.queueSize
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
