package schema

// FormDefinition describes a data-entry form: its fields and optional
// layout. Layout sections may reference only declared field keys.
type FormDefinition struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// EditTitle and EditDescription override the title when the form is
	// opened against an existing record.
	EditTitle       string `yaml:"edit_title,omitempty" json:"edit_title,omitempty"`
	EditDescription string `yaml:"edit_description,omitempty" json:"edit_description,omitempty"`

	Fields map[string]FieldDefinition `yaml:"fields" json:"fields"`

	Layout *FormLayout `yaml:"layout,omitempty" json:"layout,omitempty"`

	SubmitLabel     string `yaml:"submit_label,omitempty" json:"submit_label,omitempty"`
	EditSubmitLabel string `yaml:"edit_submit_label,omitempty" json:"edit_submit_label,omitempty"`
	CancelLabel     string `yaml:"cancel_label,omitempty" json:"cancel_label,omitempty"`
}

// LayoutType is the closed set of form layout arrangements.
type LayoutType string

const (
	LayoutGrid      LayoutType = "grid"
	LayoutTabs      LayoutType = "tabs"
	LayoutAccordion LayoutType = "accordion"
)

// IsValidLayoutType reports whether t is a declared layout type.
func IsValidLayoutType(t LayoutType) bool {
	switch t {
	case LayoutGrid, LayoutTabs, LayoutAccordion:
		return true
	default:
		return false
	}
}

// FormLayout arranges a form's fields into sections.
type FormLayout struct {
	Type     LayoutType      `yaml:"type" json:"type"`
	Columns  int             `yaml:"columns,omitempty" json:"columns,omitempty"`
	Gaps     string          `yaml:"gaps,omitempty" json:"gaps,omitempty"` // small, medium, large
	Sections []LayoutSection `yaml:"sections,omitempty" json:"sections,omitempty"`
}

// LayoutSection is one section (grid block, tab, accordion panel).
type LayoutSection struct {
	Title  string   `yaml:"title,omitempty" json:"title,omitempty"`
	Fields []string `yaml:"fields" json:"fields"`
}
