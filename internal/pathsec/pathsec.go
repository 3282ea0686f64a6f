// Package pathsec validates filesystem paths before any sync component
// reads from or writes to them.
//
// The validator enforces two rules: a path must not be a symlink, and a
// resolved path must stay inside one of the roots the validator was
// constructed with. Violations are reported as *SecurityError and recorded
// in the audit log before any filesystem write can occur.
package pathsec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/plugsync/plugsync/internal/audit"
)

// SecurityError reports a path that failed security validation.
type SecurityError struct {
	Path    string
	Purpose string
	Reason  string
}

// Error implements the error interface.
func (e *SecurityError) Error() string {
	return fmt.Sprintf("security violation (%s): %s: %s", e.Purpose, e.Reason, e.Path)
}

// IsSecurityError reports whether err is (or wraps) a *SecurityError.
func IsSecurityError(err error) bool {
	var se *SecurityError
	return errors.As(err, &se)
}

// Validator resolves and checks paths against a set of allowed roots.
type Validator struct {
	allowedRoots []string
	auditLog     *audit.Logger
}

// NewValidator creates a Validator. Paths passed to Validate must resolve
// inside one of roots; an empty roots list disables containment checking.
func NewValidator(auditLog *audit.Logger, roots ...string) *Validator {
	cleaned := make([]string, 0, len(roots))
	for _, r := range roots {
		r = filepath.Clean(r)
		// Containment is checked against resolved paths, so resolve the
		// root itself when it already exists.
		if resolved, err := filepath.EvalSymlinks(r); err == nil {
			r = resolved
		}
		cleaned = append(cleaned, r)
	}
	return &Validator{allowedRoots: cleaned, auditLog: auditLog}
}

// Validate resolves path and returns the absolute, symlink-free form.
// It fails with *SecurityError when the path is a symlink or escapes every
// allowed root, and with a plain error when the path is missing and
// allowMissing is false.
func (v *Validator) Validate(path, purpose string, allowMissing bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Lstat(abs)
	switch {
	case err == nil:
		if info.Mode()&os.ModeSymlink != 0 {
			return "", v.violation(abs, purpose, "path is a symlink")
		}
		// Resolve any symlinked ancestors so containment is checked on
		// the real location.
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlinks for %q: %w", abs, err)
		}
		abs = resolved
	case os.IsNotExist(err):
		if !allowMissing {
			return "", fmt.Errorf("path does not exist: %s", abs)
		}
		// The path itself cannot be resolved yet; resolve its parent so
		// containment still sees through symlinked ancestors.
		if parent, perr := filepath.EvalSymlinks(filepath.Dir(abs)); perr == nil {
			abs = filepath.Join(parent, filepath.Base(abs))
		}
	default:
		return "", fmt.Errorf("failed to stat %q: %w", abs, err)
	}

	if len(v.allowedRoots) > 0 && !v.contained(abs) {
		return "", v.violation(abs, purpose, "path escapes allowed roots")
	}

	return abs, nil
}

func (v *Validator) contained(path string) bool {
	for _, root := range v.allowedRoots {
		if WithinRoot(root, path) {
			return true
		}
	}
	return false
}

func (v *Validator) violation(path, purpose, reason string) error {
	if v.auditLog != nil {
		v.auditLog.Log("path_validation", audit.StatusBlocked, map[string]any{
			"path":    path,
			"purpose": purpose,
			"reason":  reason,
		})
	}
	return &SecurityError{Path: path, Purpose: purpose, Reason: reason}
}

// WithinRoot reports whether path is root itself or a descendant of root.
// Both arguments are cleaned before comparison; no filesystem access is
// performed.
func WithinRoot(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// defaultProtectedPatterns are destination-side locations owned by the
// user and excluded from orphan deletion in every mode.
var defaultProtectedPatterns = []string{
	"*.local.*",
	".env*",
	"local/**",
	"user/**",
}

// specialDirs are well-known directories never treated as orphans.
var specialDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"__pycache__":  true,
	".cache":       true,
	"node_modules": true,
	"local":        true,
	"user":         true,
}

// ProtectedChecker decides whether a destination path is user-owned and
// must survive orphan deletion.
type ProtectedChecker struct {
	globs []glob.Glob
}

// NewProtectedChecker compiles the given patterns; with no patterns the
// default protected set is used.
func NewProtectedChecker(patterns ...string) (*ProtectedChecker, error) {
	if len(patterns) == 0 {
		patterns = defaultProtectedPatterns
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid protected pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	return &ProtectedChecker{globs: globs}, nil
}

// IsProtected reports whether relPath (slash-separated, relative to the
// destination root) matches a protected pattern. Both the full relative
// path and the base name are tested.
func (c *ProtectedChecker) IsProtected(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	base := filepath.Base(relPath)
	for _, g := range c.globs {
		if g.Match(relPath) || g.Match(base) {
			return true
		}
	}
	return false
}

// IsSpecialDir reports whether name is a well-known directory (caches,
// version control, dependency trees) that orphan pruning must skip.
func IsSpecialDir(name string) bool {
	return specialDirs[name]
}
