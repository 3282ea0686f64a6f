package enhance

import (
	"encoding/json"
	"fmt"

	"dario.cat/mergo"

	"github.com/plugsync/plugsync/internal/fsops"
)

// MergeResult reports how a settings merge changed the user document.
type MergeResult struct {
	Added           int  `json:"added"`
	Preserved       int  `json:"preserved"`
	HooksNormalized bool `json:"hooksNormalized"`
}

// SettingsMerger folds the shipped settings template into the user-owned
// settings document, adding missing entries without ever overwriting an
// existing user customization.
type SettingsMerger struct {
	fs fsops.FS
}

// NewSettingsMerger creates a SettingsMerger.
func NewSettingsMerger(fs fsops.FS) *SettingsMerger {
	return &SettingsMerger{fs: fs}
}

// Merge reads the template at templatePath and the user settings at
// userPath, normalizes the hook-registration collection of both (legacy
// array form becomes the keyed-object form), merges missing template
// entries into the user document, and writes the result back atomically.
// A missing user document starts from an empty one.
func (m *SettingsMerger) Merge(templatePath, userPath string) (*MergeResult, error) {
	template, err := m.readSettings(templatePath, false)
	if err != nil {
		return nil, err
	}

	user, err := m.readSettings(userPath, true)
	if err != nil {
		return nil, err
	}

	result := &MergeResult{}
	result.HooksNormalized = normalizeHooks(template)
	if normalizeHooks(user) {
		result.HooksNormalized = true
	}

	result.Added, result.Preserved = countMerge(user, template)

	if err := mergo.Merge(&user, template); err != nil {
		return nil, fmt.Errorf("failed to merge settings: %w", err)
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := m.fs.AtomicWrite(userPath, append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write settings: %w", err)
	}

	return result, nil
}

// readSettings parses a settings document into a generic map. With
// allowMissing, an absent file yields an empty document.
func (m *SettingsMerger) readSettings(path string, allowMissing bool) (map[string]any, error) {
	data, err := m.fs.ReadFile(path)
	if err != nil {
		if allowMissing {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	return doc, nil
}

// normalizeHooks converts a legacy array-form hook collection into the
// keyed-object form, keyed by each entry's name. Returns true when the
// document was changed.
func normalizeHooks(doc map[string]any) bool {
	raw, ok := doc["hooks"]
	if !ok {
		return false
	}

	switch v := raw.(type) {
	case map[string]any:
		return false
	case []any:
		keyed := map[string]any{}
		for i, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := entry["name"].(string)
			if name == "" {
				name = fmt.Sprintf("hook-%d", i)
			}
			keyed[name] = entry
		}
		doc["hooks"] = keyed
		return true
	default:
		doc["hooks"] = map[string]any{}
		return true
	}
}

// countMerge counts the template entries that a merge will add to the
// user document versus the user entries that already exist and are kept.
// Top-level keys and individual hook registrations are both counted.
func countMerge(user, template map[string]any) (added, preserved int) {
	for key := range template {
		if key == "hooks" {
			continue
		}
		if _, ok := user[key]; ok {
			preserved++
		} else {
			added++
		}
	}

	templateHooks, _ := template["hooks"].(map[string]any)
	userHooks, _ := user["hooks"].(map[string]any)
	for name := range templateHooks {
		if _, ok := userHooks[name]; ok {
			preserved++
		} else {
			added++
		}
	}

	return added, preserved
}
