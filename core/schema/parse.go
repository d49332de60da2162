package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse parses a module definition from YAML bytes.
// It does not validate; callers run Validate separately so that structural
// parse errors and semantic errors can be reported independently.
func Parse(data []byte) (ModuleDefinition, error) {
	var def ModuleDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return ModuleDefinition{}, fmt.Errorf("parse yaml: %w", err)
	}
	return def, nil
}

// ParseFile parses a module definition from a single YAML file.
func ParseFile(path string) (ModuleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModuleDefinition{}, fmt.Errorf("read file %s: %w", path, err)
	}
	return Parse(data)
}

// ParseModuleDir parses a module laid out as a directory: a config.yaml
// holding the base definition, plus optional overlay files under configs/
// that are deep-merged over it in sorted filename order. Overlays let large
// modules split screens or forms into separate files.
func ParseModuleDir(dir string) (ModuleDefinition, error) {
	base := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(base)
	if err != nil {
		return ModuleDefinition{}, fmt.Errorf("read file %s: %w", base, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ModuleDefinition{}, fmt.Errorf("parse %s: %w", base, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	overlays, err := overlayFiles(filepath.Join(dir, "configs"))
	if err != nil {
		return ModuleDefinition{}, err
	}
	for _, path := range overlays {
		raw, err := os.ReadFile(path)
		if err != nil {
			return ModuleDefinition{}, fmt.Errorf("read file %s: %w", path, err)
		}
		var over map[string]any
		if err := yaml.Unmarshal(raw, &over); err != nil {
			return ModuleDefinition{}, fmt.Errorf("parse %s: %w", path, err)
		}
		doc = deepMerge(doc, over)
	}

	// Re-encode the merged document so the typed unmarshal (including the
	// effect shorthand handling) applies to the final shape.
	merged, err := yaml.Marshal(doc)
	if err != nil {
		return ModuleDefinition{}, fmt.Errorf("merge %s: %w", dir, err)
	}
	def, err := Parse(merged)
	if err != nil {
		return ModuleDefinition{}, fmt.Errorf("module %s: %w", filepath.Base(dir), err)
	}
	return def, nil
}

// overlayFiles lists the YAML overlay files in dir, sorted by name.
// A missing directory is not an error.
func overlayFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// deepMerge merges overlay into base. Nested maps merge recursively;
// any other value in the overlay replaces the base value outright.
func deepMerge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		bm, baseIsMap := out[k].(map[string]any)
		om, overIsMap := v.(map[string]any)
		if baseIsMap && overIsMap {
			out[k] = deepMerge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

// containsIDPlaceholder reports whether a path or endpoint template
// references the current record via {id}.
func containsIDPlaceholder(s string) bool {
	return strings.Contains(s, "{id}")
}

// isValidIdentifier checks module, screen, form, workflow and action keys:
// snake_case starting with a letter or underscore.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else if !isLetter(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
