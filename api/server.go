// Package api provides the HTTP API for the module engine.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/terahq/tera/adapters/metrics"
	"github.com/terahq/tera/app"
	"github.com/terahq/tera/core/openapi"
	"github.com/terahq/tera/core/schema"
	"github.com/terahq/tera/pkg/jsonapi"
)

// PermissionsHeader carries the caller's granted permissions as a
// comma-separated list. The engine trusts it; authentication happens
// upstream.
const PermissionsHeader = "X-Tera-Permissions"

const maxBodySize = 1 << 20 // 1MB

// Handler serves the engine API.
type Handler struct {
	engine  *app.EngineService
	modules *app.ModuleService
	log     zerolog.Logger
}

// Config holds optional router configuration.
type Config struct {
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer
	EnableOpenAPI   bool
}

// NewHandler creates an API handler.
func NewHandler(engine *app.EngineService, modules *app.ModuleService, log zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		modules: modules,
		log:     log.With().Str("component", "api").Logger(),
	}
}

// Router builds the chi router with middleware and all endpoints.
func (h *Handler) Router(cfg Config) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(h.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)

	if cfg.Metrics != nil {
		if cfg.MetricsGatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	if cfg.EnableOpenAPI {
		r.Get("/openapi.json", h.OpenAPISpec)
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/openapi.json"),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", h.ListModules)
		r.Get("/failures", h.ListFailures)
		r.Get("/menu", h.Menu)

		r.Route("/modules/{id}", func(r chi.Router) {
			r.Get("/", h.GetModule)
			r.Get("/screens", h.ModuleScreens)
			r.Get("/workflows", h.ModuleWorkflows)
			r.Get("/permissions", h.ModulePermissions)
			r.Get("/status", h.GetStatus)
			r.Put("/status", h.SetStatus)
			r.Get("/configurables", h.GetConfigurables)
			r.Post("/configurables", h.SetConfigurables)
			r.Post("/actions/{action}", h.ExecuteAction)
			r.Post("/resolve", h.ResolveInModule)
			r.Post("/screens/{screen}/render", h.RenderScreen)
		})

		r.Post("/resolve", h.Resolve)
		r.Post("/render", h.Render)
		r.Post("/reload", h.Reload)
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonapi.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports readiness: at least one snapshot has been installed.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusServiceUnavailable, "not_ready", "no module snapshot loaded"))
		return
	}
	jsonapi.WriteData(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"modules":   len(snap.Modules),
		"loaded_at": snap.LoadedAt,
	})
}

// OpenAPISpec serves a spec generated from the loaded modules.
func (h *Handler) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	gen := openapi.NewGenerator(snap.Modules)
	gen.AddServer("/", "this server")

	data, err := gen.Generate().ToJSON()
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Write(data)
}

// ListModules returns metadata for every loaded module.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	list, err := h.modules.List(r.Context())
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, list)
}

// ListFailures returns the load failures of the current snapshot.
func (h *Handler) ListFailures(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	jsonapi.WriteData(w, http.StatusOK, map[string]any{
		"failures":  snap.Failures,
		"loaded_at": snap.LoadedAt,
	})
}

// GetModule returns a full module definition.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	def, err := h.modules.Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, def)
}

// ModuleScreens returns the screens of a module.
func (h *Handler) ModuleScreens(w http.ResponseWriter, r *http.Request) {
	def, err := h.modules.Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, def.Screens)
}

// ModuleWorkflows returns the workflows of a module.
func (h *Handler) ModuleWorkflows(w http.ResponseWriter, r *http.Request) {
	def, err := h.modules.Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, def.Workflows)
}

// ModulePermissions returns the permission strings a module introduces.
func (h *Handler) ModulePermissions(w http.ResponseWriter, r *http.Request) {
	def, err := h.modules.Get(chi.URLParam(r, "id"))
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	perms := def.Permissions
	if perms == nil {
		perms = []string{}
	}
	jsonapi.WriteData(w, http.StatusOK, perms)
}

// GetStatus returns the enablement of a module.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.modules.Get(id); err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	enabled, err := h.modules.Enabled(r.Context(), id)
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, map[string]any{
		"module_id": id,
		"enabled":   enabled,
		"system":    schema.IsSystemModule(id),
	})
}

type statusRequest struct {
	Enabled bool `json:"enabled"`
}

// SetStatus enables or disables a module.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.modules.SetEnabled(r.Context(), id, req.Enabled); err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, map[string]any{
		"module_id": id,
		"enabled":   req.Enabled,
	})
}

// GetConfigurables returns module settings with effective values.
func (h *Handler) GetConfigurables(w http.ResponseWriter, r *http.Request) {
	values, err := h.modules.Configurables(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, values)
}

type configurablesRequest struct {
	Values map[string]any `json:"values"`
}

// SetConfigurables updates module settings. Unknown keys are rejected.
func (h *Handler) SetConfigurables(w http.ResponseWriter, r *http.Request) {
	var req configurablesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Values) == 0 {
		jsonapi.WriteBadRequest(w, "values is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.modules.SetConfigurables(r.Context(), id, req.Values); err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	values, err := h.modules.Configurables(r.Context(), id)
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, values)
}

type resolveRequest struct {
	Path string `json:"path"`
}

// Resolve maps a frontend path to a module screen.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		jsonapi.WriteBadRequest(w, "path is required")
		return
	}

	match, err := h.engine.Resolve(r.Context(), req.Path)
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, match)
}

// ResolveInModule resolves a path and requires the match to land in the
// module named by the URL.
func (h *Handler) ResolveInModule(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		jsonapi.WriteBadRequest(w, "path is required")
		return
	}

	match, err := h.engine.Resolve(r.Context(), req.Path)
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	if id := chi.URLParam(r, "id"); match.ModuleID != id {
		jsonapi.WriteNotFound(w, "path does not belong to module "+id)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, match)
}

// RenderScreen renders one screen of a module against record data.
func (h *Handler) RenderScreen(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	view, err := h.engine.RenderScreen(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "screen"),
		req.Record, grantedPermissions(r))
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, view)
}

type renderRequest struct {
	Path     string         `json:"path,omitempty"`
	ModuleID string         `json:"module_id,omitempty"`
	ScreenID string         `json:"screen_id,omitempty"`
	FormID   string         `json:"form_id,omitempty"`
	Record   map[string]any `json:"record,omitempty"`
}

// Render renders a screen or form against record data. The target is
// either a frontend path or an explicit module/screen pair.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	granted := grantedPermissions(r)
	ctx := r.Context()

	if req.Path != "" {
		match, err := h.engine.Resolve(ctx, req.Path)
		if err != nil {
			jsonapi.WriteFault(w, err)
			return
		}
		req.ModuleID = match.ModuleID
		req.ScreenID = match.ScreenID
	}

	if req.ModuleID == "" {
		jsonapi.WriteBadRequest(w, "path or module_id is required")
		return
	}

	if req.FormID != "" {
		view, err := h.engine.RenderForm(ctx, req.ModuleID, req.FormID, req.Record)
		if err != nil {
			jsonapi.WriteFault(w, err)
			return
		}
		jsonapi.WriteData(w, http.StatusOK, view)
		return
	}

	if req.ScreenID == "" {
		jsonapi.WriteBadRequest(w, "screen_id or form_id is required")
		return
	}

	view, err := h.engine.RenderScreen(ctx, req.ModuleID, req.ScreenID, req.Record, granted)
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, view)
}

type actionRequest struct {
	Transition string         `json:"transition,omitempty"`
	RecordID   string         `json:"record_id,omitempty"`
	RecordIDs  []string       `json:"record_ids,omitempty"`
	Record     map[string]any `json:"record,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// ExecuteAction dispatches a module action, optionally authorized as a
// workflow transition.
func (h *Handler) ExecuteAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.engine.ExecuteAction(r.Context(), app.ActionInput{
		ModuleID:    chi.URLParam(r, "id"),
		Action:      chi.URLParam(r, "action"),
		Transition:  req.Transition,
		RecordID:    req.RecordID,
		RecordIDs:   req.RecordIDs,
		Record:      req.Record,
		Payload:     req.Payload,
		Permissions: grantedPermissions(r),
	})
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, result)
}

// Reload replaces the module snapshot from disk.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.Reload(r.Context())
	if err != nil {
		jsonapi.WriteFault(w, err)
		return
	}
	jsonapi.WriteData(w, http.StatusOK, map[string]any{
		"modules":   len(snap.Modules),
		"failures":  snap.Failures,
		"loaded_at": snap.LoadedAt,
	})
}

// MenuItem is one resolved navigation node.
type MenuItem struct {
	Label    string     `json:"label"`
	Icon     string     `json:"icon,omitempty"`
	Path     string     `json:"path,omitempty"`
	ModuleID string     `json:"module_id"`
	Children []MenuItem `json:"children,omitempty"`
}

// Menu aggregates navigation across enabled modules, filtered by the
// caller's permissions.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	granted := grantedPermissions(r)
	ctx := r.Context()
	snap := h.engine.Snapshot()

	var items []MenuItem
	for _, id := range sortedModuleIDs(snap.Modules) {
		enabled, err := h.modules.Enabled(ctx, id)
		if err != nil {
			jsonapi.WriteFault(w, err)
			return
		}
		if !enabled {
			continue
		}
		def := snap.Modules[id]
		items = append(items, buildMenu(def, def.Menu, granted)...)
	}
	if items == nil {
		items = []MenuItem{}
	}
	jsonapi.WriteData(w, http.StatusOK, items)
}

func buildMenu(def schema.ModuleDefinition, entries []schema.MenuEntry, granted []string) []MenuItem {
	var items []MenuItem
	for _, entry := range entries {
		if !hasAny(granted, entry.Permissions) {
			continue
		}
		item := MenuItem{
			Label:    entry.Label,
			Icon:     entry.Icon,
			ModuleID: def.Meta.ID,
		}
		if entry.Screen != "" {
			screen, ok := def.Screens[entry.Screen]
			if !ok {
				continue
			}
			item.Path = screen.Path
		}
		item.Children = buildMenu(def, entry.Children, granted)
		items = append(items, item)
	}
	return items
}

// hasAny reports whether the caller holds at least one required
// permission. Empty requirements always pass, matching the renderer
// and the workflow engine.
func hasAny(granted, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, perm := range required {
		for _, g := range granted {
			if g == perm {
				return true
			}
		}
	}
	return false
}

func sortedModuleIDs(modules map[string]schema.ModuleDefinition) []string {
	ids := make([]string, 0, len(modules))
	for id := range modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// grantedPermissions parses the permissions header.
func grantedPermissions(r *http.Request) []string {
	header := r.Header.Get(PermissionsHeader)
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	perms := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return perms
}

// decodeBody decodes a JSON request body and writes a 400 on failure.
// An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		jsonapi.WriteBadRequest(w, "read body: "+err.Error())
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
