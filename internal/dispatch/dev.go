package dispatch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/config"
)

// runMirrorDev true-syncs every component category from the development
// source tree, deleting destination orphans so the installed tree ends
// up matching the source. The most destructive non-uninstall mode.
func (d *Dispatcher) runMirrorDev(ctx context.Context, opts Options) (*SyncResult, error) {
	source := d.cfg.DevSource
	if source == "" {
		return nil, fmt.Errorf("no development source configured")
	}
	if exists, err := d.fs.Exists(source); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("development source %s does not exist", source)
	}

	dest := d.cfg.DestDir()
	copied := 0
	for _, component := range config.Components {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := d.sync.SyncDirectory(
			filepath.Join(source, component),
			filepath.Join(dest, component),
			"*",
			true,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to mirror %s: %w", component, err)
		}
		copied += n
	}

	d.copyVersionFile(source, dest)
	d.invalidateCaches(dest)

	return &SyncResult{
		Success: true,
		Mode:    ModeMirrorDev,
		Message: fmt.Sprintf("mirrored %d files from development source", copied),
		Details: map[string]any{
			"filesCopied": copied,
			"source":      source,
		},
		sourceRoot: source,
	}, nil
}

// copyVersionFile carries the source's version document over so version
// comparison reflects the mirrored tree. Missing source version is fine.
func (d *Dispatcher) copyVersionFile(source, dest string) {
	src := config.VersionFile(source)
	if exists, err := d.fs.Exists(src); err != nil || !exists {
		return
	}
	if err := d.fs.CopyFile(src, config.VersionFile(dest), 0o644); err != nil {
		d.auditLog.Log("version_copy", audit.StatusFailure, map[string]any{"error": err.Error()})
	}
}
