package enhance

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plugsync/plugsync/internal/audit"
	"github.com/plugsync/plugsync/internal/discovery"
	"github.com/plugsync/plugsync/internal/fsops"
	"github.com/plugsync/plugsync/internal/hash"
)

// minimumComponentFiles is the smallest number of files a synced category
// may contain before validation flags it.
var minimumComponentFiles = map[string]int{
	"commands": 1,
	"agents":   1,
}

// ValidationResult summarizes the structural checks run on a synced tree.
type ValidationResult struct {
	ChecksRun int      `json:"checksRun"`
	Issues    []string `json:"issues"`
	AutoFixed []string `json:"autoFixed"`
}

// Passed reports whether no unresolved issues remain.
func (r *ValidationResult) Passed() bool {
	return len(r.Issues) == 0
}

// PostSyncValidator runs structural checks on a freshly synced tree:
// document syntax, executable integrity, and minimum component counts.
// Safe fixes (missing executable bits) are applied silently; anything
// needing a human decision is printed as guidance.
type PostSyncValidator struct {
	fs       fsops.FS
	disc     *discovery.Discovery
	hasher   hash.Hasher
	auditLog *audit.Logger
	out      io.Writer
}

// NewPostSyncValidator creates a PostSyncValidator writing guidance to out.
func NewPostSyncValidator(
	fs fsops.FS,
	disc *discovery.Discovery,
	hasher hash.Hasher,
	auditLog *audit.Logger,
	out io.Writer,
) *PostSyncValidator {
	if out == nil {
		out = os.Stdout
	}
	return &PostSyncValidator{fs: fs, disc: disc, hasher: hasher, auditLog: auditLog, out: out}
}

// Validate checks the tree at destRoot and returns the aggregated result.
func (v *PostSyncValidator) Validate(destRoot string) (*ValidationResult, error) {
	files, err := v.disc.DiscoverAllFiles(destRoot)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{Issues: []string{}, AutoFixed: []string{}}
	counts := map[string]int{}

	for _, abs := range files {
		rel, err := filepath.Rel(destRoot, abs)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		category := strings.SplitN(rel, "/", 2)[0]
		counts[category]++

		if strings.HasSuffix(rel, ".json") {
			result.ChecksRun++
			v.checkJSON(abs, rel, result)
		}
		if category == "scripts" || category == "hooks" {
			result.ChecksRun++
			v.checkExecutable(abs, rel, result)
		}
	}

	categories := make([]string, 0, len(minimumComponentFiles))
	for category := range minimumComponentFiles {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		minimum := minimumComponentFiles[category]
		result.ChecksRun++
		if counts[category] < minimum {
			issue := fmt.Sprintf("component %s has %d files, expected at least %d", category, counts[category], minimum)
			result.Issues = append(result.Issues, issue)
			fmt.Fprintf(v.out, "validation: %s; re-run a full sync to restore it\n", issue)
		}
	}

	v.auditLog.Log("post_sync_validation", audit.StatusSuccess, map[string]any{
		"checks":    result.ChecksRun,
		"issues":    len(result.Issues),
		"autoFixed": len(result.AutoFixed),
	})
	return result, nil
}

// checkJSON verifies a document parses as JSON.
func (v *PostSyncValidator) checkJSON(abs, rel string, result *ValidationResult) {
	data, err := v.fs.ReadFile(abs)
	if err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("%s: unreadable: %v", rel, err))
		return
	}
	if !json.Valid(data) {
		result.Issues = append(result.Issues, fmt.Sprintf("%s: invalid JSON", rel))
		fmt.Fprintf(v.out, "validation: %s is not valid JSON; fix or delete it manually\n", rel)
	}
}

// checkExecutable verifies a script is non-empty, hashable, and
// executable. A missing executable bit is fixed in place.
func (v *PostSyncValidator) checkExecutable(abs, rel string, result *ValidationResult) {
	info, err := v.fs.Lstat(abs)
	if err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("%s: unreadable: %v", rel, err))
		return
	}

	if info.Size() == 0 {
		result.Issues = append(result.Issues, fmt.Sprintf("%s: empty executable", rel))
		fmt.Fprintf(v.out, "validation: %s is empty; restore it from the source tree\n", rel)
		return
	}
	if _, err := v.hasher.HashFile(abs); err != nil {
		result.Issues = append(result.Issues, fmt.Sprintf("%s: integrity check failed: %v", rel, err))
		return
	}

	if info.Mode().Perm()&0o111 == 0 {
		if err := v.fs.Chmod(abs, 0o755); err != nil {
			result.Issues = append(result.Issues, fmt.Sprintf("%s: not executable and chmod failed: %v", rel, err))
			return
		}
		result.AutoFixed = append(result.AutoFixed, rel)
	}
}
