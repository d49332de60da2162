// Package render projects module definitions and record data into view
// payloads. The renderer is stateless: every call derives visibility,
// editability, and offered operations fresh from its inputs.
package render

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
	"github.com/terahq/tera/core/workflow"
)

// Renderer builds screen and form views.
type Renderer struct {
	eval *condition.Evaluator
	wf   *workflow.Engine
	log  zerolog.Logger
}

// New creates a renderer sharing the engine's evaluator and workflow
// engine.
func New(eval *condition.Evaluator, wf *workflow.Engine, log zerolog.Logger) *Renderer {
	return &Renderer{eval: eval, wf: wf, log: log}
}

// ListView is the rendered payload for a list screen.
type ListView struct {
	ScreenID    string   `json:"screen_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Columns     []string `json:"columns"`
	Searchable  []string `json:"searchable_fields,omitempty"`
	Sortable    bool     `json:"sortable"`
	Filterable  bool     `json:"filterable"`
	Paginated   bool     `json:"paginated"`
	PageSize    int      `json:"page_size,omitempty"`
	Selectable  bool     `json:"selectable"`

	CreateScreen string             `json:"create_screen,omitempty"`
	Endpoint     string             `json:"endpoint,omitempty"`
	RowActions   []schema.RowAction `json:"row_actions,omitempty"`
}

// DetailView is the rendered payload for a detail screen.
type DetailView struct {
	ScreenID     string `json:"screen_id"`
	Title        string `json:"title"`
	ShowMetadata bool   `json:"show_metadata"`

	Form *FormView `json:"form,omitempty"`

	// Workflows holds the derived status of every workflow the module
	// declares, keyed by workflow name.
	Workflows map[string]workflow.Status `json:"workflows,omitempty"`

	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`

	Actions        []string               `json:"actions,omitempty"`
	Sidebar        []schema.SidebarWidget `json:"sidebar,omitempty"`
	RelatedRecords []schema.RelatedRecord `json:"related_records,omitempty"`
}

// FormView is the rendered payload for a form.
type FormView struct {
	FormID      string             `json:"form_id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	SubmitLabel string             `json:"submit_label,omitempty"`
	Layout      *schema.FormLayout `json:"layout,omitempty"`
	Fields      []FieldView        `json:"fields"`
}

// FieldView is one rendered field with its gating resolved against the
// record.
type FieldView struct {
	Key   string           `json:"key"`
	Type  schema.FieldType `json:"type"`
	Label string           `json:"label"`

	Value any `json:"value,omitempty"`

	Hidden bool `json:"hidden"`

	// Editable is false for readonly and formula fields, for fields
	// whose disabled_if holds, and whenever the record's workflow state
	// denies edits.
	Editable bool `json:"editable"`

	Computed bool `json:"computed"`

	Required    bool                  `json:"required"`
	HelpText    string                `json:"help_text,omitempty"`
	Placeholder string                `json:"placeholder,omitempty"`
	Options     []schema.SelectOption `json:"options,omitempty"`
	Endpoint    string                `json:"endpoint,omitempty"`

	Pattern   string   `json:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength int      `json:"min_length,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

// RenderList renders a list screen for a caller with the given
// permissions. Row actions the caller lacks permission for are dropped.
func (r *Renderer) RenderList(def schema.ModuleDefinition, screenID string, granted []string) (ListView, error) {
	screen, ok := def.Screens[screenID]
	if !ok {
		return ListView{}, fault.NotFound("screen", screenID)
	}
	if err := checkPermissions(screen.Permissions, granted); err != nil {
		return ListView{}, err
	}

	view := ListView{
		ScreenID:     screenID,
		Title:        screen.Title,
		Description:  screen.Description,
		CreateScreen: screen.CreateScreen,
		Endpoint:     firstNonEmpty(screen.ListEndpoint, screen.Endpoint),
	}

	if lc := screen.ListConfig; lc != nil {
		view.Columns = lc.Columns
		view.Searchable = lc.SearchableFields
		view.Sortable = lc.Sortable
		view.Filterable = lc.Filterable
		view.Paginated = lc.Paginated
		view.PageSize = lc.PageSize
		view.Selectable = lc.Selectable
		for _, ra := range lc.RowActions {
			if checkPermissions(ra.Permissions, granted) == nil {
				view.RowActions = append(view.RowActions, ra)
			}
		}
	}

	return view, nil
}

// RenderDetail renders a detail screen against one record. Edit and
// delete rights are the conjunction of every declared workflow's
// verdict; a record in an unknown state gets neither.
func (r *Renderer) RenderDetail(def schema.ModuleDefinition, screenID string, record map[string]any, granted []string) (DetailView, error) {
	screen, ok := def.Screens[screenID]
	if !ok {
		return DetailView{}, fault.NotFound("screen", screenID)
	}
	if err := checkPermissions(screen.Permissions, granted); err != nil {
		return DetailView{}, err
	}

	view := DetailView{
		ScreenID:  screenID,
		Title:     screen.Title,
		CanEdit:   true,
		CanDelete: true,
	}

	if len(def.Workflows) > 0 {
		view.Workflows = make(map[string]workflow.Status, len(def.Workflows))
		for name, wfDef := range def.Workflows {
			status := r.wf.Evaluate(wfDef, record)
			status.Transitions = filterTransitions(status.Transitions, granted)
			view.Workflows[name] = status
			view.CanEdit = view.CanEdit && status.CanEdit
			view.CanDelete = view.CanDelete && status.CanDelete
		}
	}

	if dc := screen.DetailConfig; dc != nil {
		view.ShowMetadata = dc.ShowMetadata
		view.Actions = dc.Actions
		view.Sidebar = dc.Sidebar
		view.RelatedRecords = dc.RelatedRecords

		if dc.Form != "" {
			form, err := r.renderForm(def, dc.Form, record, view.CanEdit)
			if err != nil {
				return DetailView{}, err
			}
			view.Form = &form
		}
	}

	return view, nil
}

// RenderForm renders a form against record data. For a new record pass
// an empty map; defaults and formulas still apply.
func (r *Renderer) RenderForm(def schema.ModuleDefinition, formID string, record map[string]any) (FormView, error) {
	return r.renderForm(def, formID, record, true)
}

func (r *Renderer) renderForm(def schema.ModuleDefinition, formID string, record map[string]any, canEdit bool) (FormView, error) {
	form, ok := def.Forms[formID]
	if !ok {
		return FormView{}, fault.NotFound("form", formID)
	}

	view := FormView{
		FormID:      formID,
		Title:       form.Title,
		Description: form.Description,
		SubmitLabel: form.SubmitLabel,
		Layout:      form.Layout,
	}

	// Conditions and formulas see computed values too, so a hidden_if
	// on "total < 100" works even though total never lives on the record.
	// Formulas may reference other computed fields, so settle them with
	// repeated passes over a fixed key order; each pass resolves one
	// more link of any dependency chain.
	env := make(map[string]any, len(record)+4)
	for k, v := range record {
		env[k] = v
	}
	var computed []string
	for key, field := range form.Fields {
		if field.IsComputed() {
			computed = append(computed, key)
		}
	}
	sort.Strings(computed)
	for range computed {
		for _, key := range computed {
			env[key] = r.eval.EvalFormula(form.Fields[key].Formula, env)
		}
	}

	for _, key := range fieldOrder(form) {
		field, ok := form.Fields[key]
		if !ok {
			continue
		}
		view.Fields = append(view.Fields, r.renderField(key, field, env, canEdit))
	}

	return view, nil
}

func (r *Renderer) renderField(key string, field schema.FieldDefinition, record map[string]any, canEdit bool) FieldView {
	fv := FieldView{
		Key:         key,
		Type:        field.Type,
		Label:       field.Label,
		Computed:    field.IsComputed(),
		Required:    field.Required,
		HelpText:    field.HelpText,
		Placeholder: field.Placeholder,
		Options:     field.Options,
		Endpoint:    field.Endpoint,
		Pattern:     field.Pattern,
		Min:         field.Min,
		Max:         field.Max,
		MinLength:   field.MinLength,
		MaxLength:   field.MaxLength,
	}

	fv.Hidden = field.Hidden
	if !fv.Hidden && field.HiddenIf != "" {
		hidden, err := r.eval.EvalBool(field.HiddenIf, record)
		if err != nil {
			r.log.Warn().Err(err).Str("field", key).Msg("hidden_if failed to evaluate")
		}
		fv.Hidden = hidden
	}

	disabled := false
	if field.DisabledIf != "" {
		d, err := r.eval.EvalBool(field.DisabledIf, record)
		if err != nil {
			r.log.Warn().Err(err).Str("field", key).Msg("disabled_if failed to evaluate")
		}
		disabled = d
	}
	fv.Editable = canEdit && !field.Readonly && !disabled && !field.IsComputed()

	if field.IsComputed() {
		fv.Value = r.eval.EvalFormula(field.Formula, record)
	} else if v, ok := record[key]; ok {
		fv.Value = v
	} else if field.Default != nil {
		fv.Value = field.Default
	}

	return fv
}

// fieldOrder returns field keys in layout order when the form declares
// sections, falling back to sorted key order. Fields missing from the
// layout are appended at the end so no declared field silently vanishes.
func fieldOrder(form schema.FormDefinition) []string {
	sorted := make([]string, 0, len(form.Fields))
	for k := range form.Fields {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	if form.Layout == nil || len(form.Layout.Sections) == 0 {
		return sorted
	}

	seen := make(map[string]bool, len(form.Fields))
	var order []string
	for _, section := range form.Layout.Sections {
		for _, key := range section.Fields {
			if _, ok := form.Fields[key]; ok && !seen[key] {
				order = append(order, key)
				seen[key] = true
			}
		}
	}
	for _, key := range sorted {
		if !seen[key] {
			order = append(order, key)
		}
	}
	return order
}

func filterTransitions(options []workflow.TransitionOption, granted []string) []workflow.TransitionOption {
	var out []workflow.TransitionOption
	for _, opt := range options {
		if checkPermissions(opt.Permissions, granted) == nil {
			out = append(out, opt)
		}
	}
	return out
}

// checkPermissions passes when the caller holds at least one of the
// required permissions. An empty requirement always passes. This must
// agree with the workflow engine's transition check.
func checkPermissions(required, granted []string) error {
	if len(required) == 0 {
		return nil
	}
	for _, perm := range required {
		for _, g := range granted {
			if g == perm {
				return nil
			}
		}
	}
	return fault.Forbidden(required...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
