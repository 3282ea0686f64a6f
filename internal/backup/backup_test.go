package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/clock"
	"github.com/plugsync/plugsync/internal/fsops"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateAndRollback(t *testing.T) {
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "commands", "sync.md"), "original")
	writeFile(t, filepath.Join(dest, "VERSION.json"), `{"version":"1.0.0"}`)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := New(fsops.NewRealFS(), clock.NewFakeClock(fixed), audit.NewNop(), dest, t.TempDir())

	snap, err := m.Create()
	require.NoError(t, err)
	assert.Equal(t, fixed, snap.CreatedAt)
	assert.NotEmpty(t, snap.Path)

	// Mutate the destination after the snapshot.
	writeFile(t, filepath.Join(dest, "commands", "sync.md"), "corrupted")
	writeFile(t, filepath.Join(dest, "junk.md"), "junk")
	require.NoError(t, os.Remove(filepath.Join(dest, "VERSION.json")))

	require.NoError(t, m.Rollback(snap))

	data, err := os.ReadFile(filepath.Join(dest, "commands", "sync.md"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	_, err = os.Stat(filepath.Join(dest, "junk.md"))
	assert.True(t, os.IsNotExist(err), "post-snapshot file must be gone after rollback")
	_, err = os.Stat(filepath.Join(dest, "VERSION.json"))
	assert.NoError(t, err, "deleted file must be restored")
}

func TestCreate_MissingDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "never-installed")
	m := New(fsops.NewRealFS(), &clock.RealClock{}, audit.NewNop(), dest, t.TempDir())

	snap, err := m.Create()
	require.NoError(t, err)

	// Restoring an empty snapshot yields an empty destination.
	writeFile(t, filepath.Join(dest, "late.md"), "late")
	require.NoError(t, m.Rollback(snap))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRollback_NoSnapshot(t *testing.T) {
	m := New(fsops.NewRealFS(), &clock.RealClock{}, audit.NewNop(), t.TempDir(), t.TempDir())

	err := m.Rollback(nil)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRollback_MissingSnapshotDir(t *testing.T) {
	m := New(fsops.NewRealFS(), &clock.RealClock{}, audit.NewNop(), t.TempDir(), t.TempDir())

	err := m.Rollback(&Snapshot{Path: filepath.Join(t.TempDir(), "gone")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot directory missing")
}
