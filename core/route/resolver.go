// Package route maps request paths to the screens modules declare.
package route

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
)

// Match identifies the screen a path resolves to.
type Match struct {
	ModuleID string `json:"module_id"`
	ScreenID string `json:"screen_id"`

	// RecordID is the value captured by the path's {id} segment, empty
	// for literal paths.
	RecordID string `json:"record_id,omitempty"`
}

// Resolver matches paths against compiled screen route templates.
// Matching is case-sensitive and ignores a single trailing slash.
type Resolver struct {
	patterns []compiledScreen
}

type compiledScreen struct {
	moduleID string
	screenID string
	exact    string         // literal paths compare directly
	regex    *regexp.Regexp // templated paths match via regex
}

var idSegment = regexp.MustCompile(`\{id\}`)

// NewResolver compiles the screen paths of the given modules. Literal
// paths take precedence over templated ones, so /finance/invoices/new
// wins against /finance/invoices/{id}. When two screens compile to the
// same template the first in (module, screen) key order wins and the
// collision is logged; per-module validation already rejects this, but
// collisions across modules can still arrive here.
func NewResolver(modules map[string]schema.ModuleDefinition, log zerolog.Logger) *Resolver {
	var patterns []compiledScreen

	for _, moduleID := range sortedModuleIDs(modules) {
		def := modules[moduleID]
		for _, screenID := range sortedScreenIDs(def.Screens) {
			screen := def.Screens[screenID]
			if screen.Path == "" {
				continue
			}

			normalized := normalize(screen.Path)
			cp := compiledScreen{moduleID: moduleID, screenID: screenID}

			if strings.Contains(normalized, "{id}") {
				// QuoteMeta escapes the braces, so restore the {id}
				// marker before substituting the capture group.
				pattern := "^" + idSegment.ReplaceAllString(
					strings.ReplaceAll(regexp.QuoteMeta(normalized), `\{id\}`, "{id}"),
					`(?P<id>[^/]+)`) + "$"
				regex, err := regexp.Compile(pattern)
				if err != nil {
					log.Error().Err(err).Str("module", moduleID).Str("screen", screenID).
						Str("path", screen.Path).Msg("screen path failed to compile")
					continue
				}
				cp.regex = regex
			} else {
				cp.exact = normalized
			}

			if prior := findDuplicate(patterns, cp); prior != nil {
				log.Warn().
					Str("path", screen.Path).
					Str("module", moduleID).Str("screen", screenID).
					Str("resolves_to_module", prior.moduleID).Str("resolves_to_screen", prior.screenID).
					Msg("duplicate screen path, first declaration wins")
				continue
			}

			patterns = append(patterns, cp)
		}
	}

	// Literal paths before templated ones; build order already fixed
	// module and screen ordering within each group.
	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].regex == nil && patterns[j].regex != nil
	})

	return &Resolver{patterns: patterns}
}

// Resolve matches a request path to a screen. Unmatched paths return a
// not_found fault.
func (r *Resolver) Resolve(path string) (Match, error) {
	normalized := normalize(path)

	for _, cp := range r.patterns {
		if cp.regex == nil {
			if cp.exact == normalized {
				return Match{ModuleID: cp.moduleID, ScreenID: cp.screenID}, nil
			}
			continue
		}

		m := cp.regex.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		match := Match{ModuleID: cp.moduleID, ScreenID: cp.screenID}
		for i, name := range cp.regex.SubexpNames() {
			if name == "id" && i < len(m) {
				match.RecordID = m[i]
			}
		}
		return match, nil
	}

	return Match{}, fault.NotFound("screen for path", path)
}

func normalize(path string) string {
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

func findDuplicate(patterns []compiledScreen, cp compiledScreen) *compiledScreen {
	for i := range patterns {
		p := &patterns[i]
		if cp.regex == nil && p.regex == nil && cp.exact == p.exact {
			return p
		}
		if cp.regex != nil && p.regex != nil && cp.regex.String() == p.regex.String() {
			return p
		}
	}
	return nil
}

func sortedModuleIDs(modules map[string]schema.ModuleDefinition) []string {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedScreenIDs(screens map[string]schema.ScreenDefinition) []string {
	ids := make([]string, 0, len(screens))
	for id := range screens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
