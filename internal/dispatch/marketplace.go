package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/plugsync/plugsync/internal/config"
)

// registration is one entry of the marketplace's installed.json.
type registration struct {
	Version string `json:"version"`
	Source  string `json:"source"`
	Path    string `json:"path"`
}

// pluginName is the key this plugin registers under in the marketplace.
const pluginName = "plugsync"

// runCopyInstalled copies non-destructively from the marketplace copy of
// the plugin recorded in installed.json. Existing destination files are
// overwritten but never deleted.
func (d *Dispatcher) runCopyInstalled(ctx context.Context, opts Options) (*SyncResult, error) {
	reg, err := d.readRegistration()
	if err != nil {
		return nil, err
	}

	// Untrusted registry content: validate before touching the path.
	source, err := d.pathcheck.Validate(reg.Path, "marketplace source", false)
	if err != nil {
		return nil, fmt.Errorf("marketplace path rejected: %w", err)
	}

	if exists, err := d.fs.Exists(source); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("marketplace copy %s does not exist", source)
	}

	dest := d.cfg.DestDir()
	copied := 0
	for _, component := range config.Components {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := d.sync.SyncDirectory(
			filepath.Join(source, component),
			filepath.Join(dest, component),
			"*",
			false,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", component, err)
		}
		copied += n
	}

	return &SyncResult{
		Success: true,
		Mode:    ModeCopyInstalled,
		Message: fmt.Sprintf("copied %d files from marketplace version %s", copied, reg.Version),
		Details: map[string]any{
			"filesCopied": copied,
			"version":     reg.Version,
			"source":      source,
		},
		sourceRoot: source,
	}, nil
}

// readRegistration loads this plugin's entry from the marketplace
// registry.
func (d *Dispatcher) readRegistration() (*registration, error) {
	data, err := d.fs.ReadFile(d.cfg.MarketplaceRegistry())
	if err != nil {
		return nil, fmt.Errorf("failed to read marketplace registry: %w", err)
	}

	var installed map[string]registration
	if err := json.Unmarshal(data, &installed); err != nil {
		return nil, fmt.Errorf("failed to parse marketplace registry: %w", err)
	}

	reg, ok := installed[pluginName]
	if !ok {
		return nil, fmt.Errorf("plugin %q is not registered in the marketplace", pluginName)
	}
	if reg.Path == "" {
		return nil, fmt.Errorf("marketplace registration for %q has no path", pluginName)
	}
	return &reg, nil
}
