package integration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/backup"
	"github.com/plugsync/plugsync/internal/clock"
	"github.com/plugsync/plugsync/internal/config"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/dispatch"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/hash"
	"github.com/plugsync/plugsync/internal/remote"
	"github.com/plugsync/plugsync/internal/uninstall"
)

// setupDispatcher builds a dispatcher over temp directories with real
// filesystem and uninstall implementations. remoteURL may be empty when
// the test never fetches.
func setupDispatcher(t *testing.T, remoteURL string) (*dispatch.Dispatcher, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		Root:           t.TempDir(),
		HostRoot:       t.TempDir(),
		DevSource:      filepath.Join(t.TempDir(), "dev"),
		RemoteBaseURL:  remoteURL,
		RequestTimeout: 2 * time.Second,
	}

	fs := fsops.NewRealFS()
	auditLog := audit.NewNop()
	disc := discovery.New(fs, auditLog)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	backups := backup.New(fs, clk, auditLog, cfg.DestDir(), cfg.BackupDir())

	d, err := dispatch.New(dispatch.Deps{
		Config:  cfg,
		FS:      fs,
		Clock:   clk,
		Hasher:  hash.NewSHA256Hasher(),
		Fetcher: remote.NewFetcher(cfg.RemoteBaseURL, cfg.RequestTimeout, 0),
		Uninstaller: uninstall.New(fs, disc, backups, auditLog, cfg.DestDir(),
			cfg.SharedHooksDir(), cfg.SharedLibDir()),
		AuditLog: auditLog,
		Out:      os.Stdout,
	})
	require.NoError(t, err)
	return d, cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
