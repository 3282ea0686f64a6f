package dispatch

import (
	"context"
	"fmt"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/backup"
)

// runAll executes every non-uninstall strategy in fixed order under one
// shared backup. The first failure aborts the sequence and rolls the
// destination back to the pre-run snapshot.
func (d *Dispatcher) runAll(ctx context.Context, opts Options) *SyncResult {
	var snap *backup.Snapshot
	if opts.CreateBackup {
		s, err := d.backups.Create()
		if err != nil {
			d.auditLog.Log("backup_create", audit.StatusFailure, map[string]any{"error": err.Error()})
		} else {
			snap = s
		}
	}

	modes := make(map[string]any, len(allModeOrder))
	var last *SyncResult

	for _, mode := range allModeOrder {
		if mode == ModeDelegateHost && d.delegate == nil {
			modes[mode.String()] = map[string]any{"skipped": true, "reason": "no host delegate configured"}
			continue
		}

		sub, err := d.runStrategy(ctx, mode, opts)
		if err != nil {
			result := d.fail(ModeAll, snap, fmt.Errorf("mode %s failed: %w", mode, err))
			result.Details["modes"] = modes
			result.Details["failedMode"] = mode.String()
			return result
		}

		modes[mode.String()] = map[string]any{
			"message": sub.Message,
			"details": sub.Details,
		}
		last = sub
	}

	result := &SyncResult{
		Success:        true,
		Mode:           ModeAll,
		Message:        fmt.Sprintf("completed %d sync modes", len(modes)),
		Details:        map[string]any{"modes": modes},
		sourceRoot:     last.sourceRoot,
		sourceManifest: last.sourceManifest,
	}
	d.runEnhancers(result, opts)
	return result
}
