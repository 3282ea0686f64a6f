package enhance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/pathsec"
)

func newReconciler(t *testing.T) *OrphanReconciler {
	t.Helper()
	fs := fsops.NewRealFS()
	log := audit.NewNop()
	protected, err := pathsec.NewProtectedChecker()
	require.NoError(t, err)
	return NewOrphanReconciler(fs, discovery.New(fs, log), protected, log)
}

func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
}

func manifestOf(paths ...string) *discovery.Manifest {
	m := &discovery.Manifest{}
	for _, p := range paths {
		m.Entries = append(m.Entries, discovery.ManifestEntry{Path: p})
	}
	m.TotalFiles = len(m.Entries)
	return m
}

func TestReconcile_DryRun(t *testing.T) {
	dest := t.TempDir()
	writeTree(t, dest, "commands/sync.md", "commands/legacy.md", "agents/old.md")

	result, err := newReconciler(t).Reconcile(dest, manifestOf("commands/sync.md"), true)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.OrphansDetected)
	assert.Zero(t, result.OrphansDeleted)
	assert.ElementsMatch(t, []string{"commands/legacy.md", "agents/old.md"}, result.Orphans)

	// Nothing was deleted.
	_, err = os.Stat(filepath.Join(dest, "commands", "legacy.md"))
	assert.NoError(t, err)
}

func TestReconcile_Enforce(t *testing.T) {
	dest := t.TempDir()
	writeTree(t, dest, "commands/sync.md", "commands/legacy.md")

	result, err := newReconciler(t).Reconcile(dest, manifestOf("commands/sync.md"), false)
	require.NoError(t, err)

	assert.Equal(t, 1, result.OrphansDetected)
	assert.Equal(t, 1, result.OrphansDeleted)
	assert.Zero(t, result.Errors)

	_, err = os.Stat(filepath.Join(dest, "commands", "legacy.md"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dest, "commands", "sync.md"))
	assert.NoError(t, err)
}

func TestReconcile_ProtectedNeverOrphaned(t *testing.T) {
	dest := t.TempDir()
	writeTree(t, dest, "settings.local.json", "local/mine.md")

	result, err := newReconciler(t).Reconcile(dest, manifestOf(), false)
	require.NoError(t, err)

	assert.Zero(t, result.OrphansDetected)
	_, err = os.Stat(filepath.Join(dest, "settings.local.json"))
	assert.NoError(t, err)
}
