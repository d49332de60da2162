// Package workflow evaluates workflow state machines against record
// data. The authoritative state always lives on the record itself; the
// engine derives rights and legal transitions fresh on every call and
// caches nothing.
package workflow

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
)

// Engine derives workflow status and authorizes transitions.
type Engine struct {
	eval *condition.Evaluator
	log  zerolog.Logger
}

// New creates a workflow engine using the given expression evaluator.
func New(eval *condition.Evaluator, log zerolog.Logger) *Engine {
	return &Engine{eval: eval, log: log}
}

// TransitionOption is one transition offered from the current state.
type TransitionOption struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	To             string `json:"to"`
	ConfirmMessage string `json:"confirm_message,omitempty"`
	Action         string `json:"action"`

	// Disabled is true when the transition's guard currently holds.
	// Disabled transitions are shown but not executable.
	Disabled bool `json:"disabled"`

	// Permissions required to take the transition.
	Permissions []string `json:"permissions,omitempty"`
}

// Status is the derived workflow position of one record.
type Status struct {
	State      string `json:"state"`
	StateLabel string `json:"state_label,omitempty"`
	Color      string `json:"color,omitempty"`

	// Known is false when the record's state value is absent or names
	// no declared state. Unknown states grant nothing.
	Known bool `json:"known"`

	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`

	Transitions []TransitionOption `json:"transitions,omitempty"`
}

// Evaluate derives the record's workflow status. A record whose state
// field is absent or holds an undeclared value gets no edit or delete
// rights and no transitions; the engine never substitutes the initial
// state for an existing record.
func (e *Engine) Evaluate(def schema.WorkflowDefinition, record map[string]any) Status {
	raw, _ := record[def.StateFieldName()].(string)

	state, ok := def.States[raw]
	if raw == "" || !ok {
		return Status{State: raw}
	}

	status := Status{
		State:      raw,
		StateLabel: state.Label,
		Color:      state.Color,
		Known:      true,
		CanEdit:    state.EditAllowed(),
		CanDelete:  state.AllowDelete,
	}

	reachable := make(map[string]bool, len(state.CanTransitionTo))
	for _, target := range state.CanTransitionTo {
		reachable[target] = true
	}

	for _, key := range sortedTransitionKeys(def) {
		t := def.Transitions[key]
		if t.From != raw || !reachable[t.To] {
			continue
		}
		status.Transitions = append(status.Transitions, TransitionOption{
			Key:            key,
			Label:          t.Label,
			To:             t.To,
			ConfirmMessage: t.ConfirmMessage,
			Action:         t.Action,
			Disabled:       e.guardHolds(t, record),
			Permissions:    t.Permissions,
		})
	}

	return status
}

// Authorize checks whether the caller may take the named transition on
// the record. Checks run in a fixed order: existence from the current
// state, then permissions, then the disabled_if guard. On success the
// transition definition is returned; the engine itself never mutates
// record state.
func (e *Engine) Authorize(def schema.WorkflowDefinition, record map[string]any, transitionKey string, granted []string) (schema.Transition, error) {
	raw, _ := record[def.StateFieldName()].(string)

	state, ok := def.States[raw]
	if raw == "" || !ok {
		return schema.Transition{}, fault.New(fault.KindNoSuchTransition,
			"record state %q is not a declared workflow state", raw)
	}

	t, ok := def.Transitions[transitionKey]
	if !ok || t.From != raw || !contains(state.CanTransitionTo, t.To) {
		return schema.Transition{}, fault.New(fault.KindNoSuchTransition,
			"no transition %q from state %q", transitionKey, raw)
	}

	if len(t.Permissions) > 0 && !holdsAny(granted, t.Permissions) {
		return schema.Transition{}, fault.Forbidden(t.Permissions...)
	}

	if e.guardHolds(t, record) {
		return schema.Transition{}, fault.New(fault.KindTransitionDisabled,
			"transition %q is disabled for this record", transitionKey)
	}

	return t, nil
}

// guardHolds evaluates a transition's disabled_if against the record.
// The guard only blocks when it cleanly yields true.
func (e *Engine) guardHolds(t schema.Transition, record map[string]any) bool {
	if t.DisabledIf == "" {
		return false
	}
	disabled, err := e.eval.EvalBool(t.DisabledIf, record)
	if err != nil {
		e.log.Warn().Err(err).Str("expression", t.DisabledIf).
			Msg("transition guard failed to evaluate")
	}
	return disabled
}

func sortedTransitionKeys(def schema.WorkflowDefinition) []string {
	keys := make([]string, 0, len(def.Transitions))
	for k := range def.Transitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// holdsAny reports whether the caller holds at least one of the
// required permissions.
func holdsAny(granted, required []string) bool {
	for _, perm := range required {
		if contains(granted, perm) {
			return true
		}
	}
	return false
}
