package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/adapters/metrics"
	"github.com/terahq/tera/core/action"
	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/registry"
	"github.com/terahq/tera/core/render"
	"github.com/terahq/tera/core/route"
	"github.com/terahq/tera/core/schema"
	"github.com/terahq/tera/core/workflow"
)

// EngineService drives the interpretation pipeline: resolve a path,
// render the screen, dispatch its actions. All reads go through the
// registry's current snapshot; disabled modules are invisible to every
// operation here.
type EngineService struct {
	reg        *registry.Registry
	modules    *ModuleService
	renderer   *render.Renderer
	dispatcher *action.Dispatcher
	wf         *workflow.Engine
	collector  *metrics.Collector
	log        zerolog.Logger
}

// NewEngineService wires the engine pipeline together.
func NewEngineService(reg *registry.Registry, modules *ModuleService, renderer *render.Renderer, dispatcher *action.Dispatcher, wf *workflow.Engine, collector *metrics.Collector, log zerolog.Logger) *EngineService {
	return &EngineService{
		reg:        reg,
		modules:    modules,
		renderer:   renderer,
		dispatcher: dispatcher,
		wf:         wf,
		collector:  collector,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Resolve maps a path to a screen. Paths into disabled modules resolve
// to not found, same as paths no module claims.
func (s *EngineService) Resolve(ctx context.Context, path string) (route.Match, error) {
	match, err := s.reg.Snapshot().Resolver.Resolve(path)
	if err != nil {
		s.collector.ResolvesTotal.WithLabelValues("miss").Inc()
		return route.Match{}, err
	}

	enabled, err := s.modules.Enabled(ctx, match.ModuleID)
	if err != nil {
		return route.Match{}, err
	}
	if !enabled {
		s.collector.ResolvesTotal.WithLabelValues("disabled").Inc()
		return route.Match{}, fault.NotFound("screen for path", path)
	}

	s.collector.ResolvesTotal.WithLabelValues("ok").Inc()
	return match, nil
}

// RenderScreen renders a screen by module and screen id, choosing the
// view shape from the screen's declared type.
func (s *EngineService) RenderScreen(ctx context.Context, moduleID, screenID string, record map[string]any, granted []string) (any, error) {
	def, err := s.enabledModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	screen, ok := def.Screens[screenID]
	if !ok {
		return nil, fault.NotFound("screen", screenID)
	}

	s.collector.RendersTotal.WithLabelValues(moduleID, string(screen.Type)).Inc()

	switch screen.Type {
	case schema.ScreenList:
		return s.renderer.RenderList(def, screenID, granted)
	case schema.ScreenDetail:
		return s.renderer.RenderDetail(def, screenID, record, granted)
	case schema.ScreenForm:
		if screen.DetailConfig != nil && screen.DetailConfig.Form != "" {
			return s.renderer.RenderForm(def, screen.DetailConfig.Form, record)
		}
		return s.renderer.RenderDetail(def, screenID, record, granted)
	default:
		// Dashboards and custom screens carry no record projection; the
		// definition itself is the payload.
		return screen, nil
	}
}

// RenderForm renders a form by module and form id.
func (s *EngineService) RenderForm(ctx context.Context, moduleID, formID string, record map[string]any) (render.FormView, error) {
	def, err := s.enabledModule(ctx, moduleID)
	if err != nil {
		return render.FormView{}, err
	}
	return s.renderer.RenderForm(def, formID, record)
}

// ActionInput carries one action invocation from the API layer.
type ActionInput struct {
	ModuleID string
	Action   string

	// Transition, when set, names the workflow transition this action
	// executes. The transition is authorized against the record before
	// anything runs.
	Transition string

	RecordID    string
	RecordIDs   []string
	Record      map[string]any
	Payload     map[string]any
	Permissions []string
}

// ExecuteAction authorizes and dispatches one action.
func (s *EngineService) ExecuteAction(ctx context.Context, in ActionInput) (action.Result, error) {
	def, err := s.enabledModule(ctx, in.ModuleID)
	if err != nil {
		return action.Result{}, err
	}

	actDef, ok := def.Actions[in.Action]
	if !ok {
		s.collector.ActionsTotal.WithLabelValues(in.ModuleID, in.Action, "unknown").Inc()
		return action.Result{}, fault.NotFound("action", in.ModuleID+"."+in.Action)
	}

	if in.Transition != "" {
		if err := s.authorizeTransition(def, in); err != nil {
			s.collector.ActionsTotal.WithLabelValues(in.ModuleID, in.Action, "refused").Inc()
			return action.Result{}, err
		}
	}

	result, err := s.dispatcher.Execute(ctx, actDef, action.Request{
		ModuleID:  in.ModuleID,
		Action:    in.Action,
		RecordID:  in.RecordID,
		RecordIDs: in.RecordIDs,
		Payload:   in.Payload,
	})
	if err != nil {
		s.collector.ActionsTotal.WithLabelValues(in.ModuleID, in.Action, "failed").Inc()
		return action.Result{}, err
	}

	s.collector.ActionsTotal.WithLabelValues(in.ModuleID, in.Action, "ok").Inc()
	return result, nil
}

// authorizeTransition finds the workflow declaring the transition and
// runs the full authorization chain against the record.
func (s *EngineService) authorizeTransition(def schema.ModuleDefinition, in ActionInput) error {
	for _, wfDef := range def.Workflows {
		t, ok := wfDef.Transitions[in.Transition]
		if !ok || t.Action != in.Action {
			continue
		}
		_, err := s.wf.Authorize(wfDef, in.Record, in.Transition, in.Permissions)
		return err
	}
	return fault.New(fault.KindNoSuchTransition,
		"no workflow declares transition %q for action %q", in.Transition, in.Action)
}

// Reload rebuilds the module snapshot from disk.
func (s *EngineService) Reload(ctx context.Context) (*registry.Snapshot, error) {
	if err := s.reg.Reload(); err != nil {
		s.collector.ReloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	snap := s.reg.Snapshot()
	s.collector.ReloadsTotal.WithLabelValues("ok").Inc()
	s.collector.ObserveSnapshot(len(snap.Modules), len(snap.Failures))
	return snap, nil
}

// Snapshot returns the current module snapshot.
func (s *EngineService) Snapshot() *registry.Snapshot {
	return s.reg.Snapshot()
}

func (s *EngineService) enabledModule(ctx context.Context, moduleID string) (schema.ModuleDefinition, error) {
	def, err := s.modules.Get(moduleID)
	if err != nil {
		return schema.ModuleDefinition{}, err
	}
	enabled, err := s.modules.Enabled(ctx, moduleID)
	if err != nil {
		return schema.ModuleDefinition{}, err
	}
	if !enabled {
		return schema.ModuleDefinition{}, fault.NotFound("module", moduleID)
	}
	return def, nil
}
