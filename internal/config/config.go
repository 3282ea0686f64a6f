// Package config manages plugsync configuration and filesystem paths.
//
// All components receive an explicit *Config constructed once at startup;
// there is no process-global state. Defaults are derived from the user's
// home directory and can be overridden with PLUGSYNC_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Components are the plugin subcomponent categories synchronized between
// source trees and the installed destination.
var Components = []string{"commands", "hooks", "agents", "lib", "config", "scripts"}

// Config contains all filesystem paths and remote-fetch settings used by
// plugsync. Construct it with Load and thread it through every component.
type Config struct {
	// Root is the base directory for all plugsync data (default: ~/.plugsync)
	Root string `env:"PLUGSYNC_ROOT"`

	// HostRoot is the host tool's data directory containing the marketplace
	// registry and the shared hook/library locations (default: ~/.plughost)
	HostRoot string `env:"PLUGSYNC_HOST_ROOT"`

	// DevSource is the development source tree used by mirror-dev mode
	// (default: current working directory)
	DevSource string `env:"PLUGSYNC_DEV_SOURCE"`

	// RemoteBaseURL is the base URL for remote manifest and file fetches
	RemoteBaseURL string `env:"PLUGSYNC_REMOTE_URL" envDefault:"https://raw.githubusercontent.com/plugsync/plugin/main"`

	// RequestTimeout bounds each remote HTTP request
	RequestTimeout time.Duration `env:"PLUGSYNC_REQUEST_TIMEOUT" envDefault:"30s"`

	// RetryCount is the number of retries per remote request
	RetryCount int `env:"PLUGSYNC_RETRY_COUNT" envDefault:"2"`
}

// Load builds a Config from defaults and environment overrides.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.Root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.Root = filepath.Join(home, ".plugsync")
	}
	if cfg.HostRoot == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.HostRoot = filepath.Join(home, ".plughost")
	}
	if cfg.DevSource == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		cfg.DevSource = cwd
	}

	return cfg, nil
}

// DestDir is the installed plugin tree reconciled by every sync mode.
func (c *Config) DestDir() string {
	return filepath.Join(c.Root, "plugin")
}

// BackupDir holds pre-sync snapshots.
func (c *Config) BackupDir() string {
	return filepath.Join(c.Root, "backups")
}

// LogDir holds the audit log.
func (c *Config) LogDir() string {
	return filepath.Join(c.Root, "logs")
}

// MarketplaceDir is the host-managed plugin registry used by
// copy-installed mode.
func (c *Config) MarketplaceDir() string {
	return filepath.Join(c.HostRoot, "marketplace", "plugins")
}

// MarketplaceRegistry is the registry document listing installed plugins.
func (c *Config) MarketplaceRegistry() string {
	return filepath.Join(c.HostRoot, "marketplace", "installed.json")
}

// SharedHooksDir is the host-wide hook location mirrored by remote sync.
func (c *Config) SharedHooksDir() string {
	return filepath.Join(c.HostRoot, "hooks")
}

// SharedLibDir is the host-wide shared library location mirrored by
// remote sync.
func (c *Config) SharedLibDir() string {
	return filepath.Join(c.HostRoot, "lib")
}

// UserSettingsFile is the user-owned settings document that the settings
// merger updates in place.
func (c *Config) UserSettingsFile() string {
	return filepath.Join(c.HostRoot, "settings.json")
}

// SettingsTemplateFile is the shipped settings template inside the
// installed plugin tree.
func (c *Config) SettingsTemplateFile() string {
	return filepath.Join(c.DestDir(), "config", "settings.json")
}

// VersionFile is the version document inside an installed or source tree.
func VersionFile(root string) string {
	return filepath.Join(root, "VERSION.json")
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Root,
		c.DestDir(),
		c.BackupDir(),
		c.LogDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
