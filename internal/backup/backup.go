// Package backup snapshots the installed plugin tree before mutating sync
// modes run, and restores it when a mode fails.
//
// A snapshot is a best-effort whole-tree copy into a fresh temporary
// directory, not a multi-file-atomic transaction. Snapshots are used at
// most once for a rollback and are otherwise simply discarded.
package backup

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/clock"
	"github.com/plugsync/plugsync/internal/fsops"
)

// ErrNoSnapshot indicates a rollback was requested without a snapshot.
var ErrNoSnapshot = errors.New("no snapshot available")

// Snapshot is an opaque handle to one backup of the destination tree.
type Snapshot struct {
	// Path is the temporary directory holding the copied tree.
	Path string

	// CreatedAt records when the snapshot was taken.
	CreatedAt time.Time
}

// Manager creates and restores destination-tree snapshots.
type Manager struct {
	fs       fsops.FS
	clock    clock.Clock
	auditLog *audit.Logger
	destDir  string
	tmpRoot  string
}

// New creates a Manager for the given destination tree. Snapshots are
// created under tmpRoot; an empty tmpRoot uses the system temp directory.
func New(fs fsops.FS, clk clock.Clock, auditLog *audit.Logger, destDir, tmpRoot string) *Manager {
	return &Manager{fs: fs, clock: clk, auditLog: auditLog, destDir: destDir, tmpRoot: tmpRoot}
}

// Create copies the entire destination tree into a fresh temporary
// directory and returns the snapshot handle. A missing destination yields
// an empty snapshot that restores to an empty tree.
func (m *Manager) Create() (*Snapshot, error) {
	if m.tmpRoot != "" {
		if err := os.MkdirAll(m.tmpRoot, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create backup root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(m.tmpRoot, "plugsync-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	exists, err := m.fs.Exists(m.destDir)
	if err != nil {
		return nil, fmt.Errorf("failed to check destination: %w", err)
	}
	if exists {
		if err := m.fs.CopyTree(m.destDir, dir); err != nil {
			_ = m.fs.RemoveAll(dir)
			return nil, fmt.Errorf("failed to copy destination tree: %w", err)
		}
	}

	snap := &Snapshot{Path: dir, CreatedAt: m.clock.Now()}
	m.auditLog.Log("backup_created", audit.StatusSuccess, map[string]any{"path": dir})
	return snap, nil
}

// Rollback deletes the current destination tree and restores it from the
// snapshot. It fails only when the snapshot is nil or its directory is
// gone.
func (m *Manager) Rollback(snap *Snapshot) error {
	if snap == nil {
		return ErrNoSnapshot
	}

	exists, err := m.fs.Exists(snap.Path)
	if err != nil {
		return fmt.Errorf("failed to check snapshot: %w", err)
	}
	if !exists {
		return fmt.Errorf("snapshot directory missing: %s", snap.Path)
	}

	if err := m.fs.RemoveAll(m.destDir); err != nil {
		return fmt.Errorf("failed to clear destination: %w", err)
	}
	if err := m.fs.CopyTree(snap.Path, m.destDir); err != nil {
		return fmt.Errorf("failed to restore from snapshot: %w", err)
	}

	m.auditLog.Log("backup_restored", audit.StatusSuccess, map[string]any{"path": snap.Path})
	return nil
}
