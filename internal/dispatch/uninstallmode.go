package dispatch

import (
	"context"
	"fmt"

	"github.com/plugsync/plugsync/internal/uninstall"
)

// runUninstall delegates to the uninstall orchestrator. Without --force
// the run is downgraded to a preview regardless of the dry-run flag, so
// an accidental invocation never deletes anything.
func (d *Dispatcher) runUninstall(ctx context.Context, opts Options) *SyncResult {
	if d.uninstaller == nil {
		return failed(ModeUninstall, "uninstall unavailable", "no uninstaller configured")
	}

	dryRun := opts.DryRun || !opts.Force
	res, err := d.uninstaller.Execute(ctx, opts.Force, dryRun, opts.LocalOnly)
	if err != nil {
		return failed(ModeUninstall, "uninstall failed", err.Error())
	}

	result := &SyncResult{
		Success:        len(res.Errors) == 0,
		Mode:           ModeUninstall,
		Details:        map[string]any{"status": res.Status},
		FilesRemoved:   res.FilesRemoved,
		FilesToRemove:  res.FilesToRemove,
		TotalSizeBytes: res.TotalSizeBytes,
		BackupPath:     res.BackupPath,
		DryRun:         dryRun,
		Errors:         res.Errors,
	}

	switch res.Status {
	case uninstall.StatusPreview:
		result.Message = fmt.Sprintf("would remove %d files (%d bytes); re-run with --force to uninstall",
			len(res.FilesToRemove), res.TotalSizeBytes)
	case uninstall.StatusPartial:
		result.Message = fmt.Sprintf("removed %d files with %d errors", res.FilesRemoved, len(res.Errors))
		result.Error = fmt.Sprintf("%d files could not be removed", len(res.Errors))
	default:
		result.Message = fmt.Sprintf("removed %d files", res.FilesRemoved)
	}
	return result
}
