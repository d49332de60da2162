// Package app provides application services that orchestrate the module
// engine: snapshot access, enablement, configurables, rendering, and
// action dispatch.
package app

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/registry"
	"github.com/terahq/tera/core/schema"
	"github.com/terahq/tera/ports"
)

// ModuleInfo is the listing view of one loaded module.
type ModuleInfo struct {
	Meta    schema.ModuleMeta `json:"module"`
	Enabled bool              `json:"enabled"`
	System  bool              `json:"system"`
	Screens int               `json:"screens"`
	Version string            `json:"version,omitempty"`
}

// ConfigurableValue is one module setting with its effective value.
type ConfigurableValue struct {
	Label   string `json:"label,omitempty"`
	Type    string `json:"type,omitempty"`
	Default any    `json:"default,omitempty"`
	Value   any    `json:"value"`
}

// ModuleService exposes module metadata, enablement, and settings.
type ModuleService struct {
	reg      *registry.Registry
	statuses ports.ModuleStatusStore
	settings ports.ModuleSettingStore
	clock    ports.Clock
	log      zerolog.Logger
}

// NewModuleService creates a module service.
func NewModuleService(reg *registry.Registry, statuses ports.ModuleStatusStore, settings ports.ModuleSettingStore, clock ports.Clock, log zerolog.Logger) *ModuleService {
	return &ModuleService{
		reg:      reg,
		statuses: statuses,
		settings: settings,
		clock:    clock,
		log:      log.With().Str("component", "modules").Logger(),
	}
}

// List returns all loaded modules with their enablement.
func (s *ModuleService) List(ctx context.Context) ([]ModuleInfo, error) {
	snap := s.reg.Snapshot()

	out := make([]ModuleInfo, 0, len(snap.Modules))
	for _, def := range snap.List() {
		enabled, err := s.Enabled(ctx, def.ID())
		if err != nil {
			return nil, err
		}
		out = append(out, ModuleInfo{
			Meta:    def.Meta,
			Enabled: enabled,
			System:  schema.IsSystemModule(def.ID()),
			Screens: len(def.Screens),
			Version: def.Meta.Version,
		})
	}
	return out, nil
}

// Get returns a module definition by id.
func (s *ModuleService) Get(id string) (schema.ModuleDefinition, error) {
	def, ok := s.reg.Snapshot().Get(id)
	if !ok {
		return schema.ModuleDefinition{}, fault.NotFound("module", id)
	}
	return def, nil
}

// Enabled reports whether a module is enabled. Modules without a stored
// status default to enabled.
func (s *ModuleService) Enabled(ctx context.Context, id string) (bool, error) {
	status, ok, err := s.statuses.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return status.Enabled, nil
}

// SetEnabled changes a module's enablement. System modules cannot be
// disabled.
func (s *ModuleService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if !enabled && schema.IsSystemModule(id) {
		return fault.New(fault.KindValidation, "system module %q cannot be disabled", id)
	}

	err := s.statuses.Set(ctx, ports.ModuleStatus{
		ModuleID:  id,
		Enabled:   enabled,
		UpdatedAt: s.clock.Now(),
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("module", id).Bool("enabled", enabled).Msg("module status changed")
	return nil
}

// Configurables returns a module's settings: declared defaults merged
// with persisted overrides.
func (s *ModuleService) Configurables(ctx context.Context, id string) (map[string]ConfigurableValue, error) {
	def, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	stored, err := s.settings.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make(map[string]ConfigurableValue, len(def.Configurables))
	for key, decl := range def.Configurables {
		cv := ConfigurableValue{
			Label:   decl.Label,
			Type:    decl.Type,
			Default: decl.Default,
			Value:   decl.Default,
		}
		if v, ok := stored[key]; ok {
			cv.Value = v
		}
		out[key] = cv
	}
	return out, nil
}

// SetConfigurables stores overrides for a module. Keys the module does
// not declare are rejected.
func (s *ModuleService) SetConfigurables(ctx context.Context, id string, values map[string]any) error {
	def, err := s.Get(id)
	if err != nil {
		return err
	}

	var unknown []string
	for key := range values {
		if _, ok := def.Configurables[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fault.New(fault.KindValidation,
			"unknown configurables: %s", strings.Join(unknown, ", "))
	}

	// Merge over existing overrides so partial updates keep other keys.
	stored, err := s.settings.Get(ctx, id)
	if err != nil {
		return err
	}
	for k, v := range values {
		stored[k] = v
	}

	return s.settings.Set(ctx, id, stored)
}
