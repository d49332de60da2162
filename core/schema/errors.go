package schema

import "strings"

// ValidationError describes a single problem found in a module definition.
// Path is a dotted locator into the definition, e.g. "screens.invoice_list.path".
type ValidationError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Reason
}

// ValidationErrors collects every problem found in one validation pass.
// A definition is only rejected after all checks have run, so authors see
// the full list at once.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = ve.Error()
	}
	return "validation errors:\n  - " + strings.Join(parts, "\n  - ")
}

// HasErrors reports whether any error was recorded.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
