package schema

// FieldType is the set of form field types.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldDecimal  FieldType = "decimal"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
	FieldArray    FieldType = "array"
	FieldRichtext FieldType = "richtext"
	FieldFile     FieldType = "file"
	FieldRating   FieldType = "rating"
	FieldTags     FieldType = "tags"
)

// IsValidFieldType reports whether t is a declared field type.
func IsValidFieldType(t FieldType) bool {
	switch t {
	case FieldText, FieldEmail, FieldNumber, FieldDecimal, FieldDate,
		FieldDatetime, FieldSelect, FieldCheckbox, FieldTextarea,
		FieldArray, FieldRichtext, FieldFile, FieldRating, FieldTags:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether the field type carries a numeric value.
func (t FieldType) IsNumeric() bool {
	return t == FieldNumber || t == FieldDecimal || t == FieldRating
}

// FieldDefinition describes one form field: its type, validation
// constraints, and the conditional expressions evaluated against the
// current record state.
type FieldDefinition struct {
	Type        FieldType `yaml:"type" json:"type"`
	Label       string    `yaml:"label" json:"label"`
	Required    bool      `yaml:"required,omitempty" json:"required,omitempty"`
	Readonly    bool      `yaml:"readonly,omitempty" json:"readonly,omitempty"`
	HelpText    string    `yaml:"help_text,omitempty" json:"help_text,omitempty"`
	Placeholder string    `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Default     any       `yaml:"default,omitempty" json:"default,omitempty"`

	// Layout hints.
	Size       string `yaml:"size,omitempty" json:"size,omitempty"` // full, half, third, two-thirds
	GridColumn int    `yaml:"grid_column,omitempty" json:"grid_column,omitempty"`
	Hidden     bool   `yaml:"hidden,omitempty" json:"hidden,omitempty"`

	// Conditional expressions, evaluated against the current record.
	// The sublanguage is restricted to comparisons, arithmetic, boolean
	// logic, and field references (see core/condition).
	HiddenIf   string `yaml:"hidden_if,omitempty" json:"hidden_if,omitempty"`
	DisabledIf string `yaml:"disabled_if,omitempty" json:"disabled_if,omitempty"`

	// Formula computes a derived value from other fields. Formula fields
	// are never the target of user edits.
	Formula string `yaml:"formula,omitempty" json:"formula,omitempty"`

	// Select/dropdown configuration.
	Endpoint     string         `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	DisplayField string         `yaml:"display_field,omitempty" json:"display_field,omitempty"`
	ValueField   string         `yaml:"value_field,omitempty" json:"value_field,omitempty"`
	Searchable   bool           `yaml:"searchable,omitempty" json:"searchable,omitempty"`
	Clearable    bool           `yaml:"clearable,omitempty" json:"clearable,omitempty"`
	Options      []SelectOption `yaml:"options,omitempty" json:"options,omitempty"`

	// Array field configuration (nested row fields).
	Fields  map[string]FieldDefinition `yaml:"fields,omitempty" json:"fields,omitempty"`
	MinRows int                        `yaml:"min_rows,omitempty" json:"min_rows,omitempty"`
	MaxRows int                        `yaml:"max_rows,omitempty" json:"max_rows,omitempty"`

	// Validation constraints.
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Min       *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	MinLength int      `yaml:"min_length,omitempty" json:"min_length,omitempty"`
	MaxLength int      `yaml:"max_length,omitempty" json:"max_length,omitempty"`
}

// SelectOption is one inline option for a select field.
type SelectOption struct {
	Value any    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// IsComputed reports whether the field carries a formula.
func (f FieldDefinition) IsComputed() bool {
	return f.Formula != ""
}
