// Package discovery enumerates plugin files and produces file manifests.
//
// Discovery walks a source tree while filtering out build artifacts,
// version-control directories, editor droppings, and dotfiles. Symlinks
// are never followed or returned; each one encountered is reported to the
// audit log. All output is sorted so manifests and sync runs are
// reproducible.
package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/fsops"
)

// ManifestEntry describes one file belonging to a source version.
type ManifestEntry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Manifest enumerates every file of a source tree at a given version.
type Manifest struct {
	Version    string          `json:"version"`
	TotalFiles int             `json:"totalFiles"`
	Entries    []ManifestEntry `json:"entries"`
}

// excludedDirs are directory names skipped entirely during discovery.
var excludedDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"__pycache__":  true,
	".cache":       true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".idea":        true,
	".vscode":      true,
}

// dotfileAllowList are dotfiles included despite the dotfile exclusion.
var dotfileAllowList = map[string]bool{
	".env.example": true,
	".gitignore":   true,
}

// Discovery walks source trees applying plugsync's exclusion rules.
type Discovery struct {
	fs       fsops.FS
	auditLog *audit.Logger
}

// New creates a Discovery.
func New(fs fsops.FS, auditLog *audit.Logger) *Discovery {
	return &Discovery{fs: fs, auditLog: auditLog}
}

// DiscoverAllFiles returns the sorted absolute paths of every includable
// file under root. A missing root yields an empty result.
func (d *Discovery) DiscoverAllFiles(root string) ([]string, error) {
	var files []string
	err := d.walk(root, root, func(abs, _ string, _ os.FileInfo) {
		files = append(files, abs)
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// DiscoverMatching returns the sorted root-relative paths of includable
// files whose base name matches pattern.
func (d *Discovery) DiscoverMatching(root, pattern string) ([]string, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var files []string
	err = d.walk(root, root, func(_, rel string, _ os.FileInfo) {
		if matcher.Match(filepath.Base(rel)) {
			files = append(files, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// GenerateManifest produces a manifest of every includable file under
// root, with sizes and slash-separated relative paths. The version is
// taken from the tree's version document when present.
func (d *Discovery) GenerateManifest(root string) (*Manifest, error) {
	manifest := &Manifest{Version: readTreeVersion(d.fs, root), Entries: []ManifestEntry{}}

	err := d.walk(root, root, func(_, rel string, info os.FileInfo) {
		manifest.Entries = append(manifest.Entries, ManifestEntry{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(manifest.Entries, func(i, j int) bool {
		return manifest.Entries[i].Path < manifest.Entries[j].Path
	})
	manifest.TotalFiles = len(manifest.Entries)
	return manifest, nil
}

// ValidateAgainstManifest returns the manifest entries that are missing
// from the tree at root, in manifest order.
func (d *Discovery) ValidateAgainstManifest(root string, manifest *Manifest) ([]ManifestEntry, error) {
	var missing []ManifestEntry
	for _, entry := range manifest.Entries {
		path := filepath.Join(root, filepath.FromSlash(entry.Path))
		exists, err := d.fs.Exists(path)
		if err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", entry.Path, err)
		}
		if !exists {
			missing = append(missing, entry)
		}
	}
	return missing, nil
}

// walk recursively visits includable files under dir, calling visit with
// the absolute path, root-relative path, and file info of each.
func (d *Discovery) walk(root, dir string, visit func(abs, rel string, info os.FileInfo)) error {
	exists, err := d.fs.Exists(dir)
	if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", dir, err)
	}
	if !exists {
		return nil
	}

	entries, err := d.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		abs := filepath.Join(dir, name)

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("failed to get entry info for %s: %w", abs, err)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if d.auditLog != nil {
				d.auditLog.Log("symlink_excluded", audit.StatusSkipped, map[string]any{"path": abs})
			}
			continue
		}

		if entry.IsDir() {
			if excludedDirs[name] || (strings.HasPrefix(name, ".") && !dotfileAllowList[name]) {
				continue
			}
			if err := d.walk(root, abs, visit); err != nil {
				return err
			}
			continue
		}

		if excludedFile(name) {
			continue
		}

		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", abs, err)
		}
		visit(abs, rel, info)
	}

	return nil
}

// excludedFile reports whether a file name is filtered out of discovery.
func excludedFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return !dotfileAllowList[name]
	}
	if name == "Thumbs.db" {
		return true
	}
	if strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".pyc") {
		return true
	}
	return false
}

// readTreeVersion reads the version string from a tree's version
// document, returning "unknown" when absent or unparseable.
func readTreeVersion(fs fsops.FS, root string) string {
	data, err := fs.ReadFile(filepath.Join(root, "VERSION.json"))
	if err != nil {
		return "unknown"
	}
	var doc struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil || doc.Version == "" {
		return "unknown"
	}
	return doc.Version
}
