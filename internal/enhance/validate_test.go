package enhance

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/hash"
)

func newValidator(out *bytes.Buffer) *PostSyncValidator {
	fs := fsops.NewRealFS()
	log := audit.NewNop()
	return NewPostSyncValidator(fs, discovery.New(fs, log), hash.NewSHA256Hasher(), log, out)
}

func writeDest(t *testing.T, root, rel, content string, perm os.FileMode) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), perm))
}

func TestValidate_CleanTree(t *testing.T) {
	dest := t.TempDir()
	writeDest(t, dest, "commands/sync.md", "# sync", 0o644)
	writeDest(t, dest, "agents/helper.md", "# helper", 0o644)
	writeDest(t, dest, "config/settings.json", `{"theme":"default"}`, 0o644)
	writeDest(t, dest, "scripts/install.sh", "#!/bin/sh\n", 0o755)

	var out bytes.Buffer
	result, err := newValidator(&out).Validate(dest)
	require.NoError(t, err)

	assert.True(t, result.Passed())
	assert.Empty(t, result.AutoFixed)
	assert.Positive(t, result.ChecksRun)
	assert.Empty(t, out.String())
}

func TestValidate_AutoFixesExecutableBit(t *testing.T) {
	dest := t.TempDir()
	writeDest(t, dest, "commands/sync.md", "# sync", 0o644)
	writeDest(t, dest, "agents/helper.md", "# helper", 0o644)
	writeDest(t, dest, "hooks/pre-sync", "#!/bin/sh\n", 0o644)

	var out bytes.Buffer
	result, err := newValidator(&out).Validate(dest)
	require.NoError(t, err)

	assert.True(t, result.Passed())
	assert.Equal(t, []string{"hooks/pre-sync"}, result.AutoFixed)

	info, err := os.Stat(filepath.Join(dest, "hooks", "pre-sync"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)
}

func TestValidate_ReportsIssues(t *testing.T) {
	dest := t.TempDir()
	writeDest(t, dest, "config/settings.json", `{broken`, 0o644)
	writeDest(t, dest, "scripts/empty.sh", "", 0o755)

	var out bytes.Buffer
	result, err := newValidator(&out).Validate(dest)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	// Invalid JSON, empty executable, and the two component minimums.
	assert.Len(t, result.Issues, 4)
	assert.Contains(t, out.String(), "not valid JSON")
	assert.Contains(t, out.String(), "empty")
}

func TestValidate_MinimumComponentCounts(t *testing.T) {
	dest := t.TempDir()
	writeDest(t, dest, "commands/sync.md", "# sync", 0o644)

	var out bytes.Buffer
	result, err := newValidator(&out).Validate(dest)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "agents")
}
