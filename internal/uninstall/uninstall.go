// Package uninstall removes the installed plugin tree and its host-wide
// mirrored files.
//
// The Uninstaller interface is what the mode dispatcher consumes; the
// Orchestrator is the default implementation. A preview (dry-run) pass
// reports what would be removed without touching the filesystem.
package uninstall

import (
	"context"
	"fmt"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/backup"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
)

// Result statuses.
const (
	StatusRemoved = "removed"
	StatusPreview = "preview"
	StatusPartial = "partial"
)

// Result reports an uninstall run or preview.
type Result struct {
	Status         string   `json:"status"`
	FilesRemoved   int      `json:"filesRemoved"`
	FilesToRemove  []string `json:"filesToRemove"`
	TotalSizeBytes int64    `json:"totalSizeBytes"`
	BackupPath     string   `json:"backupPath,omitempty"`
	Errors         []string `json:"errors"`
}

// Uninstaller is the orchestrator interface consumed by the dispatcher.
type Uninstaller interface {
	// Execute removes (or previews removing) the installed plugin.
	Execute(ctx context.Context, force, dryRun, localOnly bool) (*Result, error)
}

// Orchestrator is the default Uninstaller.
type Orchestrator struct {
	fs         fsops.FS
	disc       *discovery.Discovery
	backups    *backup.Manager
	auditLog   *audit.Logger
	destDir    string
	sharedDirs []string
}

// New creates an Orchestrator. sharedDirs are the host-wide locations
// (mirrored hooks and libraries) cleaned unless localOnly is set.
func New(
	fs fsops.FS,
	disc *discovery.Discovery,
	backups *backup.Manager,
	auditLog *audit.Logger,
	destDir string,
	sharedDirs ...string,
) *Orchestrator {
	return &Orchestrator{
		fs:         fs,
		disc:       disc,
		backups:    backups,
		auditLog:   auditLog,
		destDir:    destDir,
		sharedDirs: sharedDirs,
	}
}

// Execute removes the installed plugin tree. With dryRun it only reports
// the files that would go. With localOnly the host-wide shared locations
// are left alone. A backup of the destination is taken first unless the
// run is a preview; backup failure aborts nothing, it only clears
// BackupPath.
func (o *Orchestrator) Execute(ctx context.Context, force, dryRun, localOnly bool) (*Result, error) {
	roots := []string{o.destDir}
	if !localOnly {
		roots = append(roots, o.sharedDirs...)
	}

	result := &Result{FilesToRemove: []string{}, Errors: []string{}}

	var files []string
	for _, root := range roots {
		found, err := o.disc.DiscoverAllFiles(root)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
		}
		files = append(files, found...)
	}

	for _, f := range files {
		info, err := o.fs.Lstat(f)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.FilesToRemove = append(result.FilesToRemove, f)
		result.TotalSizeBytes += info.Size()
	}

	if dryRun {
		result.Status = StatusPreview
		o.auditLog.Log("uninstall_preview", audit.StatusSuccess, map[string]any{
			"files": len(result.FilesToRemove),
			"bytes": result.TotalSizeBytes,
		})
		return result, nil
	}

	if snap, err := o.backups.Create(); err != nil {
		o.auditLog.Log("uninstall_backup", audit.StatusFailure, map[string]any{"error": err.Error()})
	} else {
		result.BackupPath = snap.Path
	}

	for _, f := range result.FilesToRemove {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err.Error())
			break
		}
		if err := o.fs.Remove(f); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f, err))
			continue
		}
		result.FilesRemoved++
	}

	// Drop the now-empty destination tree; shared roots keep their
	// directory skeletons.
	if err := o.fs.RemoveAll(o.destDir); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", o.destDir, err))
	}

	result.Status = StatusRemoved
	if len(result.Errors) > 0 {
		result.Status = StatusPartial
	}

	o.auditLog.Log("uninstall", audit.StatusSuccess, map[string]any{
		"removed": result.FilesRemoved,
		"errors":  len(result.Errors),
		"scope":   scope(localOnly),
		"forced":  force,
	})
	return result, nil
}

func scope(localOnly bool) string {
	if localOnly {
		return "local"
	}
	return "full"
}
