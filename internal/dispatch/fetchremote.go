package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/pathsec"
)

// runFetchRemote installs the plugin tree from the remote manifest. A
// failed or malformed manifest aborts the run; individual file failures
// are recorded and skipped.
func (d *Dispatcher) runFetchRemote(ctx context.Context, opts Options) (*SyncResult, error) {
	manifest, err := d.fetcher.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	dest := d.cfg.DestDir()
	if err := d.fs.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}

	components := make([]string, 0, len(manifest.Components))
	for name := range manifest.Components {
		components = append(components, name)
	}
	sort.Strings(components)

	fetched := 0
	var fileErrors []string
	entries := make([]discovery.ManifestEntry, 0, manifest.FileCount())

	for _, component := range components {
		for _, rel := range manifest.Components[component].Files {
			target, err := d.targetPath(dest, rel)
			if err != nil {
				fileErrors = append(fileErrors, fmt.Sprintf("%s: %v", rel, err))
				d.auditLog.Log("remote_fetch", audit.StatusBlocked, map[string]any{
					"path":  rel,
					"error": err.Error(),
				})
				continue
			}

			// Every listed file with a valid path stays in the source
			// manifest. A failed fetch is skippable; it must not turn an
			// installed copy of the file into an orphan.
			entries = append(entries, discovery.ManifestEntry{Path: rel})

			if err := d.fetchOne(ctx, target, component, rel); err != nil {
				fileErrors = append(fileErrors, fmt.Sprintf("%s: %v", rel, err))
				d.auditLog.Log("remote_fetch", audit.StatusFailure, map[string]any{
					"path":  rel,
					"error": err.Error(),
				})
				continue
			}
			fetched++
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	d.mirrorShared()
	d.invalidateCaches(dest, d.cfg.SharedHooksDir(), d.cfg.SharedLibDir())

	result := &SyncResult{
		Success: true,
		Mode:    ModeFetchRemote,
		Message: fmt.Sprintf("fetched %d of %d files from remote", fetched, manifest.FileCount()),
		Details: map[string]any{
			"filesFetched": fetched,
			"totalFiles":   manifest.FileCount(),
		},
		sourceManifest: &discovery.Manifest{TotalFiles: len(entries), Entries: entries},
	}
	if len(fileErrors) > 0 {
		result.Details["errors"] = fileErrors
	}
	return result, nil
}

// targetPath validates a manifest-listed relative path and resolves it
// under dest, rejecting anything that would escape.
func (d *Dispatcher) targetPath(dest, rel string) (string, error) {
	if err := d.fs.ValidateRelPath(rel); err != nil {
		return "", err
	}
	target := filepath.Join(dest, filepath.FromSlash(rel))
	if !pathsec.WithinRoot(dest, target) {
		return "", fmt.Errorf("path %q escapes destination", rel)
	}
	return target, nil
}

// fetchOne downloads a single listed file and writes it atomically to the
// already-validated target.
func (d *Dispatcher) fetchOne(ctx context.Context, target, component, rel string) error {
	data, err := d.fetcher.FetchFile(ctx, rel)
	if err != nil {
		return err
	}

	if err := d.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	return d.fs.AtomicWrite(target, data, remoteFileMode(component, rel, data))
}

// remoteFileMode picks the permission bits for a fetched file. Hook and
// script payloads must stay executable after install.
func remoteFileMode(component, rel string, data []byte) os.FileMode {
	if component == "hooks" || component == "scripts" {
		return 0o755
	}
	if top, _, found := strings.Cut(rel, "/"); found && (top == "hooks" || top == "scripts") {
		return 0o755
	}
	if strings.HasPrefix(string(data[:min(len(data), 2)]), "#!") {
		return 0o755
	}
	return 0o644
}

// mirrorShared true-syncs the hooks and lib categories into the host's
// shared directories so other plugins see the same versions.
func (d *Dispatcher) mirrorShared() {
	dest := d.cfg.DestDir()
	mirrors := []struct{ src, dst string }{
		{filepath.Join(dest, "hooks"), d.cfg.SharedHooksDir()},
		{filepath.Join(dest, "lib"), d.cfg.SharedLibDir()},
	}
	for _, m := range mirrors {
		if exists, err := d.fs.Exists(m.src); err != nil || !exists {
			continue
		}
		if _, err := d.sync.SyncDirectory(m.src, m.dst, "*", true); err != nil {
			d.auditLog.Log("shared_mirror", audit.StatusFailure, map[string]any{
				"source": m.src,
				"error":  err.Error(),
			})
		}
	}
}
