package dispatch

import (
	"context"
	"fmt"
)

// DelegateResult is the outcome reported by the host tool's validator.
type DelegateResult struct {
	Status       string   `json:"status"`
	FilesUpdated int      `json:"filesUpdated"`
	Conflicts    []string `json:"conflicts"`
}

// HostDelegate is the host tool's sync validator. Production and test
// implementations are injected at construction.
type HostDelegate interface {
	// Invoke runs the named host operation with the given context payload.
	Invoke(ctx context.Context, name string, payload map[string]any) (*DelegateResult, error)
}

// runDelegateHost hands the sync over to the host delegate and translates
// its result into the common shape.
func (d *Dispatcher) runDelegateHost(ctx context.Context, opts Options) (*SyncResult, error) {
	if d.delegate == nil {
		return nil, fmt.Errorf("no host delegate configured")
	}

	delegated, err := d.delegate.Invoke(ctx, "plugin-sync", map[string]any{
		"destination": d.cfg.DestDir(),
		"force":       opts.Force,
		"dryRun":      opts.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("host delegate failed: %w", err)
	}

	if delegated.Status != "success" {
		return nil, fmt.Errorf("host delegate reported status %q with %d conflicts",
			delegated.Status, len(delegated.Conflicts))
	}

	return &SyncResult{
		Success: true,
		Mode:    ModeDelegateHost,
		Message: fmt.Sprintf("host delegate updated %d files", delegated.FilesUpdated),
		Details: map[string]any{
			"filesUpdated": delegated.FilesUpdated,
			"conflicts":    delegated.Conflicts,
		},
	}, nil
}
