package uninstall

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/backup"
	"github.com/plugsync/plugsync/internal/clock"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
)

func newOrchestrator(t *testing.T, destDir string, sharedDirs ...string) *Orchestrator {
	t.Helper()
	fs := fsops.NewRealFS()
	log := audit.NewNop()
	backups := backup.New(fs, &clock.RealClock{}, log, destDir, t.TempDir())
	return New(fs, discovery.New(fs, log), backups, log, destDir, sharedDirs...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExecute_DryRunPreviewsOnly(t *testing.T) {
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "commands", "sync.md"), "12345")
	writeFile(t, filepath.Join(dest, "VERSION.json"), "1234567890")

	result, err := newOrchestrator(t, dest).Execute(context.Background(), false, true, false)
	require.NoError(t, err)

	assert.Equal(t, StatusPreview, result.Status)
	assert.Len(t, result.FilesToRemove, 2)
	assert.Equal(t, int64(15), result.TotalSizeBytes)
	assert.Zero(t, result.FilesRemoved)

	_, err = os.Stat(filepath.Join(dest, "VERSION.json"))
	assert.NoError(t, err, "dry run must not delete")
}

func TestExecute_RemovesTreeWithBackup(t *testing.T) {
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "commands", "sync.md"), "x")

	result, err := newOrchestrator(t, dest).Execute(context.Background(), true, false, false)
	require.NoError(t, err)

	assert.Equal(t, StatusRemoved, result.Status)
	assert.Equal(t, 1, result.FilesRemoved)
	assert.Empty(t, result.Errors)
	assert.NotEmpty(t, result.BackupPath)

	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err), "destination tree should be gone")
	_, err = os.Stat(filepath.Join(result.BackupPath, "commands", "sync.md"))
	assert.NoError(t, err, "backup should hold the removed file")
}

func TestExecute_LocalOnlySkipsSharedDirs(t *testing.T) {
	dest := t.TempDir()
	shared := t.TempDir()
	writeFile(t, filepath.Join(dest, "a.md"), "a")
	writeFile(t, filepath.Join(shared, "hook"), "h")

	result, err := newOrchestrator(t, dest, shared).Execute(context.Background(), true, false, true)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesRemoved)
	_, err = os.Stat(filepath.Join(shared, "hook"))
	assert.NoError(t, err, "shared file must survive a local-only uninstall")
}

func TestExecute_FullScopeIncludesSharedDirs(t *testing.T) {
	dest := t.TempDir()
	shared := t.TempDir()
	writeFile(t, filepath.Join(dest, "a.md"), "a")
	writeFile(t, filepath.Join(shared, "hook"), "h")

	result, err := newOrchestrator(t, dest, shared).Execute(context.Background(), true, false, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesRemoved)
	_, err = os.Stat(filepath.Join(shared, "hook"))
	assert.True(t, os.IsNotExist(err))
}
