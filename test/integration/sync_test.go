package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugsync/plugsync/internal/dispatch"
)

func TestLifecycle_InstallUpdateUninstall(t *testing.T) {
	remoteFiles := map[string]string{
		"commands/sync.md": "# sync v3.7.0",
		"hooks/pre.sh":     "#!/bin/sh\nexit 0\n",
	}
	manifest := map[string]any{"components": map[string]any{
		"commands": map[string]any{"files": []string{"commands/sync.md"}},
		"hooks":    map[string]any{"files": []string{"hooks/pre.sh"}},
	}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/manifest.json" {
			require.NoError(t, json.NewEncoder(w).Encode(manifest))
			return
		}
		if content, ok := remoteFiles[r.URL.Path[1:]]; ok {
			fmt.Fprint(w, content)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d, cfg := setupDispatcher(t, server.URL)
	ctx := context.Background()
	dest := cfg.DestDir()

	// Install from the remote manifest.
	result := d.Dispatch(ctx, dispatch.ModeFetchRemote, dispatch.Options{})
	require.True(t, result.Success, "install failed: %s", result.Error)
	assert.FileExists(t, filepath.Join(dest, "commands", "sync.md"))

	// Hooks are mirrored into the host's shared location.
	assert.FileExists(t, filepath.Join(cfg.SharedHooksDir(), "pre.sh"))

	// Update from a development checkout that dropped the old command.
	writeFile(t, filepath.Join(cfg.DevSource, "commands", "next.md"), "# next")
	writeFile(t, filepath.Join(cfg.DevSource, "VERSION.json"), `{"version":"3.8.0"}`)

	result = d.Dispatch(ctx, dispatch.ModeMirrorDev, dispatch.Options{CleanupOrphans: true})
	require.True(t, result.Success, "update failed: %s", result.Error)
	assert.FileExists(t, filepath.Join(dest, "commands", "next.md"))
	assert.NoFileExists(t, filepath.Join(dest, "commands", "sync.md"))

	// Uninstall without force only previews.
	result = d.Dispatch(ctx, dispatch.ModeUninstall, dispatch.Options{})
	require.True(t, result.Success, "preview failed: %s", result.Error)
	assert.True(t, result.DryRun)
	assert.NotEmpty(t, result.FilesToRemove)
	assert.FileExists(t, filepath.Join(dest, "commands", "next.md"))

	// Forced uninstall removes the tree and the shared mirrors.
	result = d.Dispatch(ctx, dispatch.ModeUninstall, dispatch.Options{Force: true})
	require.True(t, result.Success, "uninstall failed: %s", result.Error)
	assert.NotZero(t, result.FilesRemoved)
	_, err := os.Lstat(dest)
	assert.True(t, os.IsNotExist(err), "destination tree should be gone")
	assert.NoFileExists(t, filepath.Join(cfg.SharedHooksDir(), "pre.sh"))
}

func TestLifecycle_FailedFetchRollsBack(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d, cfg := setupDispatcher(t, server.URL)
	ctx := context.Background()

	writeFile(t, filepath.Join(cfg.DestDir(), "commands", "stable.md"), "stable")

	result := d.Dispatch(ctx, dispatch.ModeFetchRemote, dispatch.Options{CreateBackup: true})
	require.False(t, result.Success)
	assert.NotZero(t, calls)

	data, err := os.ReadFile(filepath.Join(cfg.DestDir(), "commands", "stable.md"))
	require.NoError(t, err)
	assert.Equal(t, "stable", string(data))
}
