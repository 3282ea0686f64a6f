// Package syncer implements the orphan-aware directory copy primitive.
//
// SyncDirectory mirrors the files of a source directory into a destination
// directory. It is deliberately not transactional: every file operation is
// independent, so a partial run leaves a strictly-improving destination
// tree instead of failing atomically. Per-file failures are recorded in
// the audit log and absorbed.
package syncer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/pathsec"
)

// scriptMode is applied to files recognized as executable scripts.
const scriptMode os.FileMode = 0o755

// Syncer copies plugin files between directory trees.
type Syncer struct {
	fs        fsops.FS
	disc      *discovery.Discovery
	validator *pathsec.Validator
	protected *pathsec.ProtectedChecker
	auditLog  *audit.Logger
}

// New creates a Syncer. The validator decides which source paths may be
// read; the protected checker decides which destination paths survive
// orphan deletion.
func New(
	fs fsops.FS,
	disc *discovery.Discovery,
	validator *pathsec.Validator,
	protected *pathsec.ProtectedChecker,
	auditLog *audit.Logger,
) *Syncer {
	return &Syncer{
		fs:        fs,
		disc:      disc,
		validator: validator,
		protected: protected,
		auditLog:  auditLog,
	}
}

// SyncDirectory copies every file under src whose name matches pattern
// into dst, preserving relative structure. With deleteOrphans set, files
// in dst whose name does not appear in the matched source set are removed,
// as are destination subdirectories absent from src.
//
// Returns the number of files successfully copied. A missing src is a
// logged no-op. Per-file failures do not abort the run.
func (s *Syncer) SyncDirectory(src, dst, pattern string, deleteOrphans bool) (int, error) {
	exists, err := s.fs.Exists(src)
	if err != nil {
		return 0, fmt.Errorf("failed to check source directory: %w", err)
	}
	if !exists {
		s.auditLog.Log("sync_skipped", audit.StatusSkipped, map[string]any{
			"src":    src,
			"reason": "source missing",
		})
		return 0, nil
	}

	if err := s.fs.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	matched, err := s.disc.DiscoverMatching(src, pattern)
	if err != nil {
		return 0, fmt.Errorf("failed to discover source files: %w", err)
	}

	copied := 0
	for _, rel := range matched {
		if err := s.copyOne(src, dst, rel); err != nil {
			s.auditLog.Log("file_copy", audit.StatusFailure, map[string]any{
				"path":  rel,
				"error": err.Error(),
			})
			continue
		}
		copied++
	}

	if deleteOrphans {
		s.deleteOrphans(src, dst, pattern, matched)
		s.pruneOrphanDirs(src, dst)
	}

	return copied, nil
}

// copyOne copies a single source file into the destination, creating
// parent directories and assigning the script mode where appropriate.
func (s *Syncer) copyOne(src, dst, rel string) error {
	srcPath := filepath.Join(src, rel)
	dstPath := filepath.Join(dst, rel)

	if !pathsec.WithinRoot(dst, dstPath) {
		return &pathsec.SecurityError{Path: dstPath, Purpose: "sync-copy", Reason: "destination escapes sync root"}
	}

	resolved, err := s.validator.Validate(srcPath, "sync-copy", false)
	if err != nil {
		return err
	}

	perm, err := s.fileMode(resolved, rel)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := s.fs.CopyFile(resolved, dstPath, perm); err != nil {
		return err
	}

	s.auditLog.Log("file_copy", audit.StatusSuccess, map[string]any{"path": rel})
	return nil
}

// fileMode returns the mode a copied file should receive: 0755 for
// scripts, the source mode for everything else.
func (s *Syncer) fileMode(srcPath, rel string) (os.FileMode, error) {
	if isScriptLocation(rel) {
		return scriptMode, nil
	}

	// A leading interpreter line marks a script regardless of location.
	if data, err := s.fs.ReadFile(srcPath); err == nil && bytes.HasPrefix(data, []byte("#!")) {
		return scriptMode, nil
	}

	info, err := s.fs.Lstat(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat source: %w", err)
	}
	return info.Mode().Perm(), nil
}

// isScriptLocation reports whether rel sits under a directory that holds
// executables by convention.
func isScriptLocation(rel string) bool {
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return first == "scripts" || first == "hooks"
}

// deleteOrphans removes destination files matching pattern whose base
// name is absent from the matched source set. Matching is by file name,
// not full relative path; protected paths are always kept.
func (s *Syncer) deleteOrphans(src, dst, pattern string, matched []string) {
	srcNames := make(map[string]bool, len(matched))
	for _, rel := range matched {
		srcNames[filepath.Base(rel)] = true
	}

	dstFiles, err := s.disc.DiscoverMatching(dst, pattern)
	if err != nil {
		s.auditLog.Log("orphan_scan", audit.StatusFailure, map[string]any{"error": err.Error()})
		return
	}

	for _, rel := range dstFiles {
		if srcNames[filepath.Base(rel)] {
			continue
		}
		if s.protected.IsProtected(rel) {
			s.auditLog.Log("orphan_delete", audit.StatusSkipped, map[string]any{
				"path":   rel,
				"reason": "protected",
			})
			continue
		}

		if err := s.fs.Remove(filepath.Join(dst, rel)); err != nil {
			s.auditLog.Log("orphan_delete", audit.StatusFailure, map[string]any{
				"path":  rel,
				"error": err.Error(),
			})
			continue
		}
		s.auditLog.Log("orphan_delete", audit.StatusSuccess, map[string]any{"path": rel})
	}
}

// pruneOrphanDirs removes destination subdirectories whose name does not
// exist in src, skipping protected and well-known special directories.
func (s *Syncer) pruneOrphanDirs(src, dst string) {
	entries, err := s.fs.ReadDir(dst)
	if err != nil {
		s.auditLog.Log("orphan_dir_scan", audit.StatusFailure, map[string]any{"error": err.Error()})
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if pathsec.IsSpecialDir(name) || s.protected.IsProtected(name) {
			continue
		}

		inSrc, err := s.fs.Exists(filepath.Join(src, name))
		if err != nil || inSrc {
			continue
		}

		s.removeTreeBottomUp(filepath.Join(dst, name), name)
	}
}

// removeTreeBottomUp deletes files first and empty directories on the way
// back up, leaving any protected content (and its ancestors) in place.
func (s *Syncer) removeTreeBottomUp(dir, rel string) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		s.auditLog.Log("orphan_dir_delete", audit.StatusFailure, map[string]any{
			"path":  rel,
			"error": err.Error(),
		})
		return
	}

	for _, entry := range entries {
		childRel := filepath.Join(rel, entry.Name())
		childPath := filepath.Join(dir, entry.Name())

		if s.protected.IsProtected(childRel) || (entry.IsDir() && pathsec.IsSpecialDir(entry.Name())) {
			continue
		}

		if entry.IsDir() {
			s.removeTreeBottomUp(childPath, childRel)
			continue
		}
		if err := s.fs.Remove(childPath); err != nil {
			s.auditLog.Log("orphan_delete", audit.StatusFailure, map[string]any{
				"path":  childRel,
				"error": err.Error(),
			})
		}
	}

	// Remove succeeds only when everything inside was deletable.
	if err := s.fs.Remove(dir); err == nil {
		s.auditLog.Log("orphan_dir_delete", audit.StatusSuccess, map[string]any{"path": rel})
	}
}
