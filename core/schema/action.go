package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ActionType is the closed set of action kinds.
type ActionType string

const (
	// ActionAPI calls a declared HTTP endpoint.
	ActionAPI ActionType = "api"

	// ActionCustom dispatches to a caller-registered handler.
	ActionCustom ActionType = "custom"

	// ActionBatch dispatches to a caller-registered handler with a set
	// of record ids.
	ActionBatch ActionType = "batch"
)

// IsValidActionType reports whether t is a declared action type.
func IsValidActionType(t ActionType) bool {
	switch t {
	case ActionAPI, ActionCustom, ActionBatch:
		return true
	default:
		return false
	}
}

// ActionDefinition describes a side-effecting operation.
type ActionDefinition struct {
	Type ActionType `yaml:"type" json:"type"`

	// HTTP method and endpoint template for api actions. The endpoint
	// may contain one {id} placeholder substituted from the invocation.
	Method   string `yaml:"method,omitempty" json:"method,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// Handler names the registered handler for custom/batch actions.
	// Defaults to the action key.
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`

	SuccessMessage string `yaml:"success_message,omitempty" json:"success_message,omitempty"`
	ErrorMessage   string `yaml:"error_message,omitempty" json:"error_message,omitempty"`

	// OnSuccess lists effects applied in order after a successful call.
	OnSuccess []Effect `yaml:"on_success,omitempty" json:"on_success,omitempty"`
}

// EffectType is the closed set of post-success effects.
type EffectType string

const (
	EffectRefreshForm EffectType = "refresh_form"
	EffectRefreshList EffectType = "refresh_list"
	EffectNavigateTo  EffectType = "navigate_to"
	EffectShowMessage EffectType = "show_message"
	EffectCloseModal  EffectType = "close_modal"
)

// IsValidEffectType reports whether t is a declared effect type.
func IsValidEffectType(t EffectType) bool {
	switch t {
	case EffectRefreshForm, EffectRefreshList, EffectNavigateTo,
		EffectShowMessage, EffectCloseModal:
		return true
	default:
		return false
	}
}

// Effect is one post-success effect. In YAML an effect is either a bare
// string ("refresh_form") or a mapping ({navigate_to: /path} or
// {type: navigate_to, target: /path}).
type Effect struct {
	Type EffectType `json:"type"`

	// Target is the navigation path for navigate_to, or the message for
	// show_message. May contain {id}.
	Target string `json:"target,omitempty"`
}

// UnmarshalYAML accepts both the string shorthand and the mapping form.
func (e *Effect) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		e.Type = EffectType(s)
		return nil

	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		if t, ok := m["type"]; ok {
			e.Type = EffectType(t)
			if target, ok := m["target"]; ok {
				e.Target = target
			}
			return nil
		}
		// Single-key shorthand: {navigate_to: /path}
		for k, v := range m {
			e.Type = EffectType(k)
			e.Target = v
		}
		return nil

	default:
		return fmt.Errorf("effect must be a string or mapping, got yaml kind %d", node.Kind)
	}
}

// MarshalYAML emits the mapping form for effects with a target and the
// string shorthand otherwise.
func (e Effect) MarshalYAML() (any, error) {
	if e.Target == "" {
		return string(e.Type), nil
	}
	return map[string]string{string(e.Type): e.Target}, nil
}

// RequiresRecordID reports whether the action's endpoint template needs
// a record id to be substituted.
func (a ActionDefinition) RequiresRecordID() bool {
	return containsIDPlaceholder(a.Endpoint)
}
