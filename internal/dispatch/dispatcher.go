// Package dispatch selects and runs one synchronization strategy per
// call, owning backup/rollback orchestration and the post-sync
// enhancement layer.
//
// The dispatcher's external contract: Dispatch never raises. Strategy
// errors and panics are converted into a failed SyncResult after the
// destination has been rolled back from the pre-sync snapshot, and no
// enhancer failure can downgrade a successful result.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/backup"
	"github.com/plugsync/plugsync/internal/clock"
	"github.com/plugsync/plugsync/internal/config"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/enhance"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/hash"
	"github.com/plugsync/plugsync/internal/pathsec"
	"github.com/plugsync/plugsync/internal/remote"
	"github.com/plugsync/plugsync/internal/syncer"
	"github.com/plugsync/plugsync/internal/uninstall"
)

// Options are the per-dispatch modifiers.
type Options struct {
	// CreateBackup snapshots the destination before a mutating mode runs.
	CreateBackup bool

	// DryRun previews instead of mutating where the mode supports it.
	DryRun bool

	// Force confirms destructive operations (uninstall).
	Force bool

	// LocalOnly restricts uninstall to the local plugin tree.
	LocalOnly bool

	// CleanupOrphans switches the orphan reconciler from preview to
	// enforcement.
	CleanupOrphans bool
}

// Deps are the collaborators injected into a Dispatcher.
type Deps struct {
	Config      *config.Config
	FS          fsops.FS
	Clock       clock.Clock
	Hasher      hash.Hasher
	Fetcher     *remote.Fetcher
	Delegate    HostDelegate
	Uninstaller uninstall.Uninstaller
	AuditLog    *audit.Logger
	Out         io.Writer
}

// Dispatcher runs sync strategies with backup/rollback protection.
type Dispatcher struct {
	cfg         *config.Config
	fs          fsops.FS
	disc        *discovery.Discovery
	sync        *syncer.Syncer
	backups     *backup.Manager
	fetcher     *remote.Fetcher
	delegate    HostDelegate
	uninstaller uninstall.Uninstaller
	versions    *enhance.VersionComparator
	orphans     *enhance.OrphanReconciler
	settings    *enhance.SettingsMerger
	validator   *enhance.PostSyncValidator
	pathcheck   *pathsec.Validator
	auditLog    *audit.Logger
}

// New wires a Dispatcher from its collaborators.
func New(deps Deps) (*Dispatcher, error) {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}

	protected, err := pathsec.NewProtectedChecker()
	if err != nil {
		return nil, err
	}

	cfg := deps.Config
	pathcheck := pathsec.NewValidator(deps.AuditLog,
		cfg.DestDir(),
		cfg.DevSource,
		cfg.MarketplaceDir(),
		cfg.SharedHooksDir(),
		cfg.SharedLibDir(),
	)

	disc := discovery.New(deps.FS, deps.AuditLog)
	backups := backup.New(deps.FS, deps.Clock, deps.AuditLog, cfg.DestDir(), cfg.BackupDir())

	d := &Dispatcher{
		cfg:         cfg,
		fs:          deps.FS,
		disc:        disc,
		sync:        syncer.New(deps.FS, disc, pathcheck, protected, deps.AuditLog),
		backups:     backups,
		fetcher:     deps.Fetcher,
		delegate:    deps.Delegate,
		uninstaller: deps.Uninstaller,
		versions:    enhance.NewVersionComparator(deps.FS),
		orphans:     enhance.NewOrphanReconciler(deps.FS, disc, protected, deps.AuditLog),
		settings:    enhance.NewSettingsMerger(deps.FS),
		validator:   enhance.NewPostSyncValidator(deps.FS, disc, deps.Hasher, deps.AuditLog, deps.Out),
		pathcheck:   pathcheck,
		auditLog:    deps.AuditLog,
	}
	return d, nil
}

// Dispatch runs the strategy bound to mode and always returns a result,
// converting every strategy error or panic into a failed SyncResult.
func (d *Dispatcher) Dispatch(ctx context.Context, mode SyncMode, opts Options) (result *SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failed(mode, "sync aborted", fmt.Sprintf("internal panic: %v", r))
		}
	}()

	if !mode.IsValid() {
		return failed(mode, "unknown sync mode", fmt.Sprintf("unknown sync mode %q", mode))
	}

	d.auditLog.Log("dispatch", audit.StatusSuccess, map[string]any{"mode": mode.String()})

	switch mode {
	case ModeUninstall:
		return d.runUninstall(ctx, opts)
	case ModeAll:
		return d.runAll(ctx, opts)
	default:
		return d.runProtected(ctx, mode, opts)
	}
}

// runProtected executes one mutating strategy under backup protection
// and runs the enhancers on success.
func (d *Dispatcher) runProtected(ctx context.Context, mode SyncMode, opts Options) *SyncResult {
	var snap *backup.Snapshot
	if opts.CreateBackup {
		s, err := d.backups.Create()
		if err != nil {
			// Non-fatal: sync proceeds without rollback protection.
			d.auditLog.Log("backup_create", audit.StatusFailure, map[string]any{"error": err.Error()})
		} else {
			snap = s
		}
	}

	result, err := d.runStrategy(ctx, mode, opts)
	if err != nil {
		return d.fail(mode, snap, err)
	}

	d.runEnhancers(result, opts)
	return result
}

// runStrategy invokes the strategy bound to mode, converting panics into
// errors so the dispatch contract holds.
func (d *Dispatcher) runStrategy(ctx context.Context, mode SyncMode, opts Options) (result *SyncResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()

	switch mode {
	case ModeFetchRemote:
		return d.runFetchRemote(ctx, opts)
	case ModeDelegateHost:
		return d.runDelegateHost(ctx, opts)
	case ModeCopyInstalled:
		return d.runCopyInstalled(ctx, opts)
	case ModeMirrorDev:
		return d.runMirrorDev(ctx, opts)
	default:
		return nil, fmt.Errorf("no strategy bound to mode %q", mode)
	}
}

// fail rolls the destination back (when a snapshot exists) and converts
// the strategy error into a failed result.
func (d *Dispatcher) fail(mode SyncMode, snap *backup.Snapshot, strategyErr error) *SyncResult {
	result := failed(mode, "sync failed", strategyErr.Error())

	if snap != nil {
		if err := d.backups.Rollback(snap); err != nil {
			d.auditLog.Log("rollback", audit.StatusFailure, map[string]any{"error": err.Error()})
			result.Details["rollbackError"] = err.Error()
		} else {
			result.Message = "sync failed, destination restored from backup"
			result.Details["rolledBack"] = true
		}
	}

	d.auditLog.Log("dispatch", audit.StatusFailure, map[string]any{
		"mode":  mode.String(),
		"error": strategyErr.Error(),
	})
	return result
}

// runEnhancers annotates a successful result. Each enhancer is isolated:
// a failure or panic leaves its field absent and never affects Success.
func (d *Dispatcher) runEnhancers(result *SyncResult, opts Options) {
	if !result.Success || result.Mode == ModeDelegateHost {
		return
	}
	dest := d.cfg.DestDir()

	if result.sourceRoot != "" {
		d.safely("version_compare", func() error {
			result.VersionComparison = d.versions.Compare(dest, result.sourceRoot)
			return nil
		})
	}

	manifest := result.sourceManifest
	if manifest == nil && result.sourceRoot != "" {
		d.safely("source_manifest", func() error {
			m, err := d.disc.GenerateManifest(result.sourceRoot)
			if err != nil {
				return err
			}
			manifest = m
			return nil
		})
	}
	if manifest != nil {
		d.safely("orphan_cleanup", func() error {
			cleanup, err := d.orphans.Reconcile(dest, manifest, !opts.CleanupOrphans)
			if err != nil {
				return err
			}
			result.OrphanCleanup = cleanup
			return nil
		})
	}

	d.safely("settings_merge", func() error {
		template := d.cfg.SettingsTemplateFile()
		if exists, err := d.fs.Exists(template); err != nil || !exists {
			return err
		}
		merged, err := d.settings.Merge(template, d.cfg.UserSettingsFile())
		if err != nil {
			return err
		}
		result.SettingsMerged = merged
		return nil
	})

	d.safely("post_sync_validation", func() error {
		validation, err := d.validator.Validate(dest)
		if err != nil {
			return err
		}
		result.Validation = validation
		return nil
	})
}

// safely runs one enhancer, swallowing errors and panics.
func (d *Dispatcher) safely(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			d.auditLog.Log(name, audit.StatusFailure, map[string]any{"panic": fmt.Sprint(r)})
		}
	}()

	if err := fn(); err != nil {
		d.auditLog.Log(name, audit.StatusFailure, map[string]any{"error": err.Error()})
	}
}

// invalidateCaches removes compiled-artifact cache directories under the
// given roots after files have been replaced.
func (d *Dispatcher) invalidateCaches(roots ...string) {
	for _, root := range roots {
		d.removeCacheDirs(root)
	}
}

func (d *Dispatcher) removeCacheDirs(dir string) {
	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if entry.Name() == "__pycache__" || entry.Name() == ".cache" {
			if err := d.fs.RemoveAll(path); err == nil {
				d.auditLog.Log("cache_invalidated", audit.StatusSuccess, map[string]any{"path": path})
			}
			continue
		}
		d.removeCacheDirs(path)
	}
}
