package enhance

import (
	"path/filepath"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/pathsec"
)

// CleanupResult reports the outcome of one orphan reconciliation pass.
type CleanupResult struct {
	OrphansDetected int      `json:"orphansDetected"`
	OrphansDeleted  int      `json:"orphansDeleted"`
	DryRun          bool     `json:"dryRun"`
	Errors          int      `json:"errors"`
	Orphans         []string `json:"orphans"`
}

// OrphanReconciler detects installed files no longer listed by the
// current source manifest.
type OrphanReconciler struct {
	fs        fsops.FS
	disc      *discovery.Discovery
	protected *pathsec.ProtectedChecker
	auditLog  *audit.Logger
}

// NewOrphanReconciler creates an OrphanReconciler.
func NewOrphanReconciler(
	fs fsops.FS,
	disc *discovery.Discovery,
	protected *pathsec.ProtectedChecker,
	auditLog *audit.Logger,
) *OrphanReconciler {
	return &OrphanReconciler{fs: fs, disc: disc, protected: protected, auditLog: auditLog}
}

// Reconcile compares the installed tree at destRoot against manifest and
// deletes (or, in dry-run, only reports) files the manifest no longer
// lists. Protected paths are never considered orphans. Per-file deletion
// failures are counted, not fatal.
func (r *OrphanReconciler) Reconcile(destRoot string, manifest *discovery.Manifest, dryRun bool) (*CleanupResult, error) {
	listed := make(map[string]bool, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		listed[entry.Path] = true
	}

	installed, err := r.disc.DiscoverAllFiles(destRoot)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{DryRun: dryRun, Orphans: []string{}}
	for _, abs := range installed {
		rel, err := filepath.Rel(destRoot, abs)
		if err != nil {
			result.Errors++
			continue
		}
		rel = filepath.ToSlash(rel)

		if listed[rel] || r.protected.IsProtected(rel) {
			continue
		}

		result.OrphansDetected++
		result.Orphans = append(result.Orphans, rel)

		if dryRun {
			continue
		}
		if err := r.fs.Remove(abs); err != nil {
			result.Errors++
			r.auditLog.Log("orphan_reconcile", audit.StatusFailure, map[string]any{
				"path":  rel,
				"error": err.Error(),
			})
			continue
		}
		result.OrphansDeleted++
		r.auditLog.Log("orphan_reconcile", audit.StatusSuccess, map[string]any{"path": rel})
	}

	return result, nil
}
