// Package enhance implements the post-sync enhancement layer: version
// comparison, orphan reconciliation, settings merging, and structural
// validation.
//
// Enhancers run only after a successful core sync and are isolated by the
// dispatcher so that no enhancer failure can downgrade a successful
// result.
package enhance

import (
	"encoding/json"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/plugsync/plugsync/internal/fsops"
)

// Version comparison statuses.
const (
	StatusUpgradeAvailable = "upgrade-available"
	StatusDowngradeRisk    = "downgrade-risk"
	StatusUpToDate         = "up-to-date"
	StatusProjectNotSynced = "not-determined"
)

// VersionComparison classifies the installed version against the source
// version. Computed fresh per dispatch call, never persisted.
type VersionComparison struct {
	Status         string `json:"status"`
	ProjectVersion string `json:"projectVersion,omitempty"`
	SourceVersion  string `json:"sourceVersion,omitempty"`
}

// VersionComparator reads version documents and classifies their
// relationship.
type VersionComparator struct {
	fs fsops.FS
}

// NewVersionComparator creates a VersionComparator.
func NewVersionComparator(fs fsops.FS) *VersionComparator {
	return &VersionComparator{fs: fs}
}

// Compare reads the version documents of the installed tree and the
// source tree. Read or parse failures never raise; they yield the
// not-determined status.
func (c *VersionComparator) Compare(projectRoot, sourceRoot string) *VersionComparison {
	projectVersion := c.readVersion(projectRoot)
	sourceVersion := c.readVersion(sourceRoot)

	result := &VersionComparison{
		Status:         StatusProjectNotSynced,
		ProjectVersion: projectVersion,
		SourceVersion:  sourceVersion,
	}
	if projectVersion == "" || sourceVersion == "" {
		return result
	}

	project, err := semver.NewVersion(projectVersion)
	if err != nil {
		return result
	}
	source, err := semver.NewVersion(sourceVersion)
	if err != nil {
		return result
	}

	switch {
	case source.GreaterThan(project):
		result.Status = StatusUpgradeAvailable
	case source.LessThan(project):
		result.Status = StatusDowngradeRisk
	default:
		result.Status = StatusUpToDate
	}
	return result
}

// readVersion returns the version string of a tree's version document, or
// "" when missing or unparseable.
func (c *VersionComparator) readVersion(root string) string {
	data, err := c.fs.ReadFile(filepath.Join(root, "VERSION.json"))
	if err != nil {
		return ""
	}
	var doc struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ""
	}
	return doc.Version
}
