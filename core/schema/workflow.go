package schema

// WorkflowDefinition is a named state machine governing a record's
// lifecycle and edit/delete rights. The authoritative state of a record
// is a field on the record's persisted data; definitions carry no
// runtime state of their own.
type WorkflowDefinition struct {
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// StateField names the record field holding the authoritative state.
	// Defaults to "status".
	StateField string `yaml:"state_field,omitempty" json:"state_field,omitempty"`

	// InitialState must name a declared state. It applies to newly
	// created records only; the engine never falls back to it for
	// records whose state value is absent.
	InitialState string `yaml:"initial_state" json:"initial_state"`

	States map[string]State `yaml:"states" json:"states"`

	Transitions map[string]Transition `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// State describes one workflow state and the rights it grants.
type State struct {
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`

	// CanTransitionTo lists state names reachable from this state. Every
	// entry must be backed by at least one declared Transition.
	CanTransitionTo []string `yaml:"can_transition_to,omitempty" json:"can_transition_to,omitempty"`

	// AllowEdit defaults to true when omitted; use EditAllowed.
	AllowEdit   *bool `yaml:"allow_edit,omitempty" json:"allow_edit,omitempty"`
	AllowDelete bool  `yaml:"allow_delete,omitempty" json:"allow_delete,omitempty"`
}

// EditAllowed reports whether records in this state may be edited.
// States allow editing unless allow_edit is explicitly false.
func (s State) EditAllowed() bool {
	return s.AllowEdit == nil || *s.AllowEdit
}

// Transition is a guarded, permissioned move between two states,
// implemented via the referenced action.
type Transition struct {
	From  string `yaml:"from" json:"from"`
	To    string `yaml:"to" json:"to"`
	Label string `yaml:"label" json:"label"`

	// Action references an action key in the same module. The transition
	// itself never mutates state; the action's external call does, and
	// the new state becomes authoritative only once that call succeeds.
	Action string `yaml:"action" json:"action"`

	ConfirmMessage string `yaml:"confirm_message,omitempty" json:"confirm_message,omitempty"`

	// DisabledIf is evaluated against the current record data; a true
	// result blocks the transition.
	DisabledIf string `yaml:"disabled_if,omitempty" json:"disabled_if,omitempty"`

	// Permissions required to request this transition; empty means any
	// caller may.
	Permissions []string `yaml:"permissions,omitempty" json:"permissions,omitempty"`
}

// StateFieldName returns the record field carrying the authoritative
// workflow state.
func (w WorkflowDefinition) StateFieldName() string {
	if w.StateField == "" {
		return "status"
	}
	return w.StateField
}

// TransitionsFrom returns the keys of transitions whose From matches the
// given state, in no particular order.
func (w WorkflowDefinition) TransitionsFrom(state string) []string {
	var keys []string
	for key, t := range w.Transitions {
		if t.From == state {
			keys = append(keys, key)
		}
	}
	return keys
}
