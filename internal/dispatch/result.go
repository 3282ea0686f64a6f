package dispatch

import (
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/enhance"
)

// SyncResult is the outcome of one dispatch call. Every dispatch returns
// one; the dispatcher never raises.
type SyncResult struct {
	Success bool           `json:"success"`
	Mode    SyncMode       `json:"mode"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error,omitempty"`

	// Enhancement payloads, populated only on a successful core sync.
	VersionComparison *enhance.VersionComparison `json:"versionComparison,omitempty"`
	OrphanCleanup     *enhance.CleanupResult     `json:"orphanCleanup,omitempty"`
	SettingsMerged    *enhance.MergeResult       `json:"settingsMerged,omitempty"`
	Validation        *enhance.ValidationResult  `json:"validation,omitempty"`

	// Uninstall-specific fields.
	FilesRemoved   int      `json:"filesRemoved,omitempty"`
	FilesToRemove  []string `json:"filesToRemove,omitempty"`
	TotalSizeBytes int64    `json:"totalSizeBytes,omitempty"`
	BackupPath     string   `json:"backupPath,omitempty"`
	DryRun         bool     `json:"dryRun,omitempty"`
	Errors         []string `json:"errors,omitempty"`

	// sourceRoot is the directory the strategy synced from, used by the
	// enhancers; empty when no on-disk source exists.
	sourceRoot string

	// sourceManifest is the file listing of the source, when the
	// strategy produced one directly.
	sourceManifest *discovery.Manifest
}

// failed builds the failure result for a mode.
func failed(mode SyncMode, message, errText string) *SyncResult {
	return &SyncResult{
		Success: false,
		Mode:    mode,
		Message: message,
		Error:   errText,
		Details: map[string]any{},
	}
}
