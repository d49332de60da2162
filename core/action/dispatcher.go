// Package action executes the operations modules declare: HTTP calls
// for api actions, registered Go handlers for custom and batch ones.
package action

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
	"github.com/terahq/tera/ports"
)

// Request carries one action invocation.
type Request struct {
	ModuleID string
	Action   string

	// RecordID is substituted into {id} placeholders. Required when the
	// action's endpoint references one.
	RecordID string

	// RecordIDs is the selection for batch actions.
	RecordIDs []string

	// Payload is the request body forwarded to the endpoint or handler.
	Payload map[string]any
}

// Result is the outcome reported back to the caller.
type Result struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	RedirectTo string         `json:"redirect_to,omitempty"`
}

// Handler implements a custom or batch action in Go.
type Handler func(ctx context.Context, req Request) (Result, error)

// Dispatcher routes action invocations to their implementation.
type Dispatcher struct {
	api ports.RecordAPI
	ids ports.IDGenerator
	log zerolog.Logger

	handlersMu sync.RWMutex
	handlers   map[string]Handler
}

// NewDispatcher creates a dispatcher calling endpoints through api.
// Each execution gets an id from ids for log correlation.
func NewDispatcher(api ports.RecordAPI, ids ports.IDGenerator, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		api:      api,
		ids:      ids,
		log:      log,
		handlers: make(map[string]Handler),
	}
}

// Register installs a handler under "{moduleID}.{name}". Later
// registrations replace earlier ones.
func (d *Dispatcher) Register(moduleID, name string, h Handler) {
	d.handlersMu.Lock()
	d.handlers[moduleID+"."+name] = h
	d.handlersMu.Unlock()
}

// Execute runs the action definition against the request. Engine
// refusals (missing record id, unregistered handler, failed backend
// call) come back as typed errors; a nil error means the action
// succeeded and Result describes what the caller should do next.
func (d *Dispatcher) Execute(ctx context.Context, def schema.ActionDefinition, req Request) (Result, error) {
	log := d.log.With().Str("execution_id", d.ids.New()).
		Str("module", req.ModuleID).Str("action", req.Action).Logger()

	switch def.Type {
	case schema.ActionAPI:
		return d.executeAPI(ctx, log, def, req)
	case schema.ActionCustom, schema.ActionBatch:
		return d.executeHandler(ctx, log, def, req)
	default:
		return Result{}, fault.New(fault.KindValidation, "unknown action type %q", def.Type)
	}
}

func (d *Dispatcher) executeAPI(ctx context.Context, log zerolog.Logger, def schema.ActionDefinition, req Request) (Result, error) {
	if def.RequiresRecordID() && req.RecordID == "" {
		return Result{}, fault.New(fault.KindMissingRecordID,
			"action %q requires a record id", req.Action)
	}

	endpoint := substituteID(def.Endpoint, req.RecordID)
	method := strings.ToUpper(def.Method)

	log.Debug().Str("method", method).Str("endpoint", endpoint).Msg("dispatching api action")

	resp, err := d.api.Call(ctx, method, endpoint, req.Payload)
	if err != nil {
		return Result{}, fault.Wrap(fault.KindActionFailed, err,
			"action %q: call %s %s", req.Action, method, endpoint)
	}

	if !resp.OK() {
		msg := resp.Detail()
		if msg == "" {
			msg = def.ErrorMessage
		}
		if msg == "" {
			msg = fmt.Sprintf("action failed with status %d", resp.StatusCode)
		}
		return Result{}, fault.New(fault.KindActionFailed, "%s", msg)
	}

	return Result{
		Success:    true,
		Message:    substituteID(def.SuccessMessage, req.RecordID),
		Data:       resp.Body,
		RedirectTo: redirectTarget(def, req.RecordID),
	}, nil
}

func (d *Dispatcher) executeHandler(ctx context.Context, log zerolog.Logger, def schema.ActionDefinition, req Request) (Result, error) {
	name := def.Handler
	if name == "" {
		name = req.Action
	}
	key := req.ModuleID + "." + name

	d.handlersMu.RLock()
	h, ok := d.handlers[key]
	d.handlersMu.RUnlock()
	if !ok {
		return Result{}, fault.New(fault.KindNotImplemented,
			"no handler registered for %q", key)
	}

	log.Debug().Str("handler", key).Msg("dispatching handler action")

	result, err := h(ctx, req)
	if err != nil {
		return Result{}, fault.Wrap(fault.KindActionFailed, err, "handler %q", key)
	}

	if result.Message == "" {
		result.Message = substituteID(def.SuccessMessage, req.RecordID)
	}
	if result.RedirectTo == "" {
		result.RedirectTo = redirectTarget(def, req.RecordID)
	}
	return result, nil
}

// redirectTarget returns the first navigate_to effect's target with the
// record id substituted, empty when the action declares none.
func redirectTarget(def schema.ActionDefinition, recordID string) string {
	for _, effect := range def.OnSuccess {
		if effect.Type == schema.EffectNavigateTo {
			return substituteID(effect.Target, recordID)
		}
	}
	return ""
}

func substituteID(template, recordID string) string {
	if template == "" || recordID == "" {
		return template
	}
	return strings.ReplaceAll(template, "{id}", recordID)
}
