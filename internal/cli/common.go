package cli

import (
	"encoding/json"
	"fmt"
	"os"

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

// newDispatcher creates a dispatcher with real implementations of all
// dependencies.
func newDispatcher() (*dispatch.Dispatcher, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	fs := fsops.NewRealFS()
	auditLog := audit.New(cfg.LogDir())
	disc := discovery.New(fs, auditLog)
	clk := &clock.RealClock{}
	backups := backup.New(fs, clk, auditLog, cfg.DestDir(), cfg.BackupDir())

	return dispatch.New(dispatch.Deps{
		Config:   cfg,
		FS:       fs,
		Clock:    clk,
		Hasher:   hash.NewSHA256Hasher(),
		Fetcher:  remote.NewFetcher(cfg.RemoteBaseURL, cfg.RequestTimeout, cfg.RetryCount),
		Delegate: newHostDelegate(),
		Uninstaller: uninstall.New(fs, disc, backups, auditLog, cfg.DestDir(),
			cfg.SharedHooksDir(), cfg.SharedLibDir()),
		AuditLog: auditLog,
		Out:      os.Stdout,
	})
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
