// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// External Call Ports
// -----------------------------------------------------------------------------

// APIResponse is the outcome of one record API call.
type APIResponse struct {
	StatusCode int
	Body       map[string]any
}

// OK reports whether the call succeeded at the HTTP level.
func (r APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Detail extracts the failure detail a backend includes in an error
// body, empty when none was sent.
func (r APIResponse) Detail() string {
	if r.Body == nil {
		return ""
	}
	if d, ok := r.Body["detail"].(string); ok {
		return d
	}
	return ""
}

// RecordAPI performs the HTTP calls declared by api actions and screen
// endpoints. Implementations own base URLs, auth headers, and timeouts.
type RecordAPI interface {
	// Call invokes method on the endpoint with an optional JSON body.
	Call(ctx context.Context, method, endpoint string, body map[string]any) (APIResponse, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// ModuleStatus is the persisted enablement of one module.
type ModuleStatus struct {
	ModuleID  string
	Enabled   bool
	UpdatedAt time.Time
}

// ModuleStatusStore persists per-module enablement. Modules without a
// row are enabled.
type ModuleStatusStore interface {
	// Get returns the stored status, or ok=false when none exists.
	Get(ctx context.Context, moduleID string) (ModuleStatus, bool, error)

	// Set stores the status, replacing any prior row.
	Set(ctx context.Context, status ModuleStatus) error

	// List returns all stored statuses.
	List(ctx context.Context) ([]ModuleStatus, error)
}

// ModuleSettingStore persists configurable overrides per module. Values
// are merged over the defaults a module declares.
type ModuleSettingStore interface {
	// Get returns the stored overrides for a module, which may be empty.
	Get(ctx context.Context, moduleID string) (map[string]any, error)

	// Set replaces the stored overrides for a module.
	Set(ctx context.Context, moduleID string, values map[string]any) error
}
