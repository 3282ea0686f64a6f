package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLUGSYNC_ROOT", "")
	os.Unsetenv("PLUGSYNC_ROOT")
	t.Setenv("PLUGSYNC_HOST_ROOT", "")
	os.Unsetenv("PLUGSYNC_HOST_ROOT")

	cfg, err := Load()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".plugsync"), cfg.Root)
	assert.Equal(t, filepath.Join(home, ".plughost"), cfg.HostRoot)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RetryCount)
	assert.NotEmpty(t, cfg.DevSource)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PLUGSYNC_ROOT", "/tmp/psroot")
	t.Setenv("PLUGSYNC_HOST_ROOT", "/tmp/pshost")
	t.Setenv("PLUGSYNC_DEV_SOURCE", "/tmp/devtree")
	t.Setenv("PLUGSYNC_REMOTE_URL", "https://example.com/plugin")
	t.Setenv("PLUGSYNC_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/psroot", cfg.Root)
	assert.Equal(t, "/tmp/pshost", cfg.HostRoot)
	assert.Equal(t, "/tmp/devtree", cfg.DevSource)
	assert.Equal(t, "https://example.com/plugin", cfg.RemoteBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestConfig_DerivedPaths(t *testing.T) {
	cfg := &Config{Root: "/data/plugsync", HostRoot: "/data/plughost"}

	assert.Equal(t, "/data/plugsync/plugin", cfg.DestDir())
	assert.Equal(t, "/data/plugsync/backups", cfg.BackupDir())
	assert.Equal(t, "/data/plughost/marketplace/plugins", cfg.MarketplaceDir())
	assert.Equal(t, "/data/plughost/hooks", cfg.SharedHooksDir())
	assert.Equal(t, "/data/plughost/lib", cfg.SharedLibDir())
	assert.Equal(t, "/data/plughost/settings.json", cfg.UserSettingsFile())
	assert.Equal(t, "/data/plugsync/plugin/config/settings.json", cfg.SettingsTemplateFile())
}

func TestConfig_EnsureDirectories(t *testing.T) {
	cfg := &Config{Root: filepath.Join(t.TempDir(), "root"), HostRoot: t.TempDir()}

	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.Root, cfg.DestDir(), cfg.BackupDir(), cfg.LogDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}
