package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ExprChecker verifies that a conditional or formula expression compiles
// under the restricted evaluation environment. A nil checker skips
// expression checks.
type ExprChecker func(expr string) error

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// Validate checks a module definition and returns every problem found.
// A definition with a non-empty result must be rejected; validation never
// stops at the first error so authors can fix a file in one pass.
func Validate(def ModuleDefinition, checkExpr ExprChecker) ValidationErrors {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)})
	}

	if def.Meta.ID == "" {
		add("module.id", "module id is required")
	} else if !isValidIdentifier(def.Meta.ID) {
		add("module.id", "%q is not a valid identifier", def.Meta.ID)
	}
	if def.Meta.Name == "" {
		add("module.name", "module name is required")
	}

	validateScreens(def, add)
	validateForms(def, checkExpr, add)
	validateWorkflows(def, checkExpr, add)
	validateActions(def, add)
	validateMenu("menu", def.Menu, def, add)

	return errs
}

type addFunc func(path, format string, args ...any)

func validateScreens(def ModuleDefinition, add addFunc) {
	// Deterministic order so ambiguity errors always blame the same key.
	keys := sortedKeys(def.Screens)

	shapes := make(map[string]string)
	for _, key := range keys {
		screen := def.Screens[key]
		path := "screens." + key

		if !isValidIdentifier(key) {
			add(path, "screen key %q is not a valid identifier", key)
		}
		if !IsValidScreenType(screen.Type) {
			add(path+".type", "unknown screen type %q", screen.Type)
		}

		switch {
		case screen.Path == "":
			add(path+".path", "screen path is required")
		case !strings.HasPrefix(screen.Path, "/"):
			add(path+".path", "path %q must start with /", screen.Path)
		default:
			shape, err := pathShape(screen.Path)
			if err != nil {
				add(path+".path", "%v", err)
			} else if prior, ok := shapes[shape]; ok {
				add(path+".path", "path %q is ambiguous with screen %q", screen.Path, prior)
			} else {
				shapes[shape] = key
			}
		}

		if screen.CreateScreen != "" && !def.HasScreen(screen.CreateScreen) {
			add(path+".create_screen", "unknown screen %q", screen.CreateScreen)
		}
		if screen.Type == ScreenCustom && screen.Component == "" {
			add(path+".component", "custom screens require a component")
		}

		if screen.ListConfig != nil {
			for i, ra := range screen.ListConfig.RowActions {
				raPath := fmt.Sprintf("%s.list_config.row_actions[%d]", path, i)
				if ra.Action == "" && ra.NavigateTo == "" {
					add(raPath, "row action needs either an action or a navigate_to path")
				}
				if ra.Action != "" {
					if _, ok := def.Actions[ra.Action]; !ok {
						add(raPath+".action", "unknown action %q", ra.Action)
					}
				}
			}
		}

		if screen.DetailConfig != nil {
			dc := screen.DetailConfig
			if dc.Form != "" {
				if _, ok := def.Forms[dc.Form]; !ok {
					add(path+".detail_config.form", "unknown form %q", dc.Form)
				}
			}
			for i, name := range dc.Actions {
				if _, ok := def.Actions[name]; !ok {
					add(fmt.Sprintf("%s.detail_config.actions[%d]", path, i), "unknown action %q", name)
				}
			}
			for i, w := range dc.Sidebar {
				if w.Workflow != "" {
					if _, ok := def.Workflows[w.Workflow]; !ok {
						add(fmt.Sprintf("%s.detail_config.sidebar[%d].workflow", path, i), "unknown workflow %q", w.Workflow)
					}
				}
			}
		}
	}
}

func validateForms(def ModuleDefinition, checkExpr ExprChecker, add addFunc) {
	for _, key := range sortedKeys(def.Forms) {
		form := def.Forms[key]
		path := "forms." + key

		if !isValidIdentifier(key) {
			add(path, "form key %q is not a valid identifier", key)
		}
		if len(form.Fields) == 0 {
			add(path+".fields", "form must declare at least one field")
		}

		for _, fieldKey := range sortedKeys(form.Fields) {
			validateField(path+".fields."+fieldKey, fieldKey, form.Fields[fieldKey], checkExpr, add)
		}

		if form.Layout != nil {
			if form.Layout.Type != "" && !IsValidLayoutType(form.Layout.Type) {
				add(path+".layout.type", "unknown layout type %q", form.Layout.Type)
			}
			for i, section := range form.Layout.Sections {
				for j, name := range section.Fields {
					if _, ok := form.Fields[name]; !ok {
						add(fmt.Sprintf("%s.layout.sections[%d].fields[%d]", path, i, j),
							"unknown field %q", name)
					}
				}
			}
		}
	}
}

func validateField(path, key string, field FieldDefinition, checkExpr ExprChecker, add addFunc) {
	if !isValidIdentifier(key) {
		add(path, "field key %q is not a valid identifier", key)
	}
	if !IsValidFieldType(field.Type) {
		add(path+".type", "unknown field type %q", field.Type)
	}

	if field.Type == FieldSelect && len(field.Options) == 0 && field.Endpoint == "" {
		add(path, "select field requires options or an endpoint")
	}

	if field.IsComputed() {
		// Formula fields are display-only; requiring user input for one
		// would make the form unsatisfiable.
		if field.Required {
			add(path, "formula field cannot be required")
		}
		if checkExpr != nil {
			if err := checkExpr(field.Formula); err != nil {
				add(path+".formula", "%v", err)
			}
		}
	}
	if field.HiddenIf != "" && checkExpr != nil {
		if err := checkExpr(field.HiddenIf); err != nil {
			add(path+".hidden_if", "%v", err)
		}
	}
	if field.DisabledIf != "" && checkExpr != nil {
		if err := checkExpr(field.DisabledIf); err != nil {
			add(path+".disabled_if", "%v", err)
		}
	}

	if field.Pattern != "" {
		if _, err := regexp.Compile(field.Pattern); err != nil {
			add(path+".pattern", "invalid pattern: %v", err)
		}
	}
	if field.Min != nil && field.Max != nil && *field.Min > *field.Max {
		add(path, "min %v exceeds max %v", *field.Min, *field.Max)
	}
	if field.MinLength > 0 && field.MaxLength > 0 && field.MinLength > field.MaxLength {
		add(path, "min_length %d exceeds max_length %d", field.MinLength, field.MaxLength)
	}
	if field.MinRows > 0 && field.MaxRows > 0 && field.MinRows > field.MaxRows {
		add(path, "min_rows %d exceeds max_rows %d", field.MinRows, field.MaxRows)
	}

	if field.Type == FieldArray {
		if len(field.Fields) == 0 {
			add(path+".fields", "array field requires nested fields")
		}
		for _, nestedKey := range sortedKeys(field.Fields) {
			validateField(path+".fields."+nestedKey, nestedKey, field.Fields[nestedKey], checkExpr, add)
		}
	}
}

func validateWorkflows(def ModuleDefinition, checkExpr ExprChecker, add addFunc) {
	for _, key := range sortedKeys(def.Workflows) {
		wf := def.Workflows[key]
		path := "workflows." + key

		if !isValidIdentifier(key) {
			add(path, "workflow key %q is not a valid identifier", key)
		}
		if len(wf.States) == 0 {
			add(path+".states", "workflow must declare at least one state")
		}

		switch {
		case wf.InitialState == "":
			add(path+".initial_state", "initial_state is required")
		default:
			if _, ok := wf.States[wf.InitialState]; !ok {
				add(path+".initial_state", "unknown state %q", wf.InitialState)
			}
		}

		// Index transitions by from/to pair for reachability checks.
		type pair struct{ from, to string }
		declared := make(map[pair]bool)
		for _, tKey := range sortedKeys(wf.Transitions) {
			t := wf.Transitions[tKey]
			tPath := path + ".transitions." + tKey

			if _, ok := wf.States[t.From]; !ok {
				add(tPath+".from", "unknown state %q", t.From)
			}
			if _, ok := wf.States[t.To]; !ok {
				add(tPath+".to", "unknown state %q", t.To)
			}
			switch {
			case t.Action == "":
				add(tPath+".action", "transition action is required")
			default:
				if _, ok := def.Actions[t.Action]; !ok {
					add(tPath+".action", "unknown action %q", t.Action)
				}
			}
			if t.DisabledIf != "" && checkExpr != nil {
				if err := checkExpr(t.DisabledIf); err != nil {
					add(tPath+".disabled_if", "%v", err)
				}
			}
			declared[pair{t.From, t.To}] = true
		}

		for _, sKey := range sortedKeys(wf.States) {
			state := wf.States[sKey]
			for i, target := range state.CanTransitionTo {
				sPath := fmt.Sprintf("%s.states.%s.can_transition_to[%d]", path, sKey, i)
				if _, ok := wf.States[target]; !ok {
					add(sPath, "unknown state %q", target)
					continue
				}
				if !declared[pair{sKey, target}] {
					add(sPath, "no transition declared from %q to %q", sKey, target)
				}
			}
		}
	}
}

func validateActions(def ModuleDefinition, add addFunc) {
	for _, key := range sortedKeys(def.Actions) {
		action := def.Actions[key]
		path := "actions." + key

		if !isValidIdentifier(key) {
			add(path, "action key %q is not a valid identifier", key)
		}
		if !IsValidActionType(action.Type) {
			add(path+".type", "unknown action type %q", action.Type)
		}

		if action.Type == ActionAPI {
			if action.Endpoint == "" {
				add(path+".endpoint", "api action requires an endpoint")
			}
			switch {
			case action.Method == "":
				add(path+".method", "api action requires a method")
			case !httpMethods[strings.ToUpper(action.Method)]:
				add(path+".method", "unknown HTTP method %q", action.Method)
			}
		}

		for i, effect := range action.OnSuccess {
			ePath := fmt.Sprintf("%s.on_success[%d]", path, i)
			if !IsValidEffectType(effect.Type) {
				add(ePath, "unknown effect type %q", effect.Type)
			}
			if effect.Type == EffectNavigateTo && effect.Target == "" {
				add(ePath, "navigate_to effect requires a target")
			}
		}
	}
}

func validateMenu(path string, entries []MenuEntry, def ModuleDefinition, add addFunc) {
	for i, entry := range entries {
		ePath := fmt.Sprintf("%s[%d]", path, i)
		if entry.Label == "" {
			add(ePath+".label", "menu label is required")
		}
		if entry.Screen != "" && !def.HasScreen(entry.Screen) {
			add(ePath+".screen", "unknown screen %q", entry.Screen)
		}
		if entry.Screen == "" && len(entry.Children) == 0 {
			add(ePath, "menu entry needs a screen or children")
		}
		validateMenu(ePath+".children", entry.Children, def, add)
	}
}

// pathShape normalizes a route template for ambiguity detection: the
// trailing slash is dropped and the {id} segment collapses to a
// wildcard, so "/invoices/{id}" and "/invoices/{id}/" collide.
func pathShape(path string) (string, error) {
	trimmed := strings.TrimSuffix(path, "/")
	if trimmed == "" {
		trimmed = "/"
	}

	idCount := 0
	segments := strings.Split(trimmed, "/")
	for i, seg := range segments {
		if !strings.Contains(seg, "{") && !strings.Contains(seg, "}") {
			continue
		}
		if seg != "{id}" {
			return "", fmt.Errorf("path %q: only a bare {id} segment is allowed, got %q", path, seg)
		}
		idCount++
		if idCount > 1 {
			return "", fmt.Errorf("path %q: at most one {id} placeholder is allowed", path)
		}
		segments[i] = "*"
	}

	return strings.Join(segments, "/"), nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
