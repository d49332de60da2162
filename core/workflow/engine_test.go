package workflow

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
)

func boolPtr(v bool) *bool { return &v }

func approvalWorkflow() schema.WorkflowDefinition {
	return schema.WorkflowDefinition{
		InitialState: "draft",
		States: map[string]schema.State{
			"draft": {
				Label:           "Draft",
				AllowDelete:     true,
				CanTransitionTo: []string{"submitted"},
			},
			"submitted": {
				Label:           "Submitted",
				AllowEdit:       boolPtr(false),
				CanTransitionTo: []string{"approved", "draft"},
			},
			"approved": {Label: "Approved", AllowEdit: boolPtr(false)},
		},
		Transitions: map[string]schema.Transition{
			"submit": {
				From: "draft", To: "submitted", Label: "Submit", Action: "submit",
				DisabledIf: "total <= 0",
			},
			"approve": {
				From: "submitted", To: "approved", Label: "Approve", Action: "approve",
				Permissions: []string{"finance.approve", "finance.admin"},
			},
			"reject": {
				From: "submitted", To: "draft", Label: "Reject", Action: "reject",
			},
		},
	}
}

func newEngine() *Engine {
	return New(condition.New(), zerolog.Nop())
}

func TestEvaluateDraft(t *testing.T) {
	e := newEngine()
	status := e.Evaluate(approvalWorkflow(), map[string]any{"status": "draft", "total": 100})

	if !status.Known {
		t.Fatal("draft should be a known state")
	}
	if !status.CanEdit || !status.CanDelete {
		t.Error("draft should allow edit and delete")
	}
	if len(status.Transitions) != 1 || status.Transitions[0].Key != "submit" {
		t.Fatalf("Transitions = %+v, want [submit]", status.Transitions)
	}
	if status.Transitions[0].Disabled {
		t.Error("submit should be enabled with positive total")
	}
}

func TestEvaluateGuardDisables(t *testing.T) {
	e := newEngine()
	status := e.Evaluate(approvalWorkflow(), map[string]any{"status": "draft", "total": 0})

	if !status.Transitions[0].Disabled {
		t.Error("submit should be disabled with zero total")
	}
}

func TestEvaluateSubmittedOrdering(t *testing.T) {
	e := newEngine()
	status := e.Evaluate(approvalWorkflow(), map[string]any{"status": "submitted"})

	if status.CanEdit || status.CanDelete {
		t.Error("submitted should allow neither edit nor delete")
	}
	if len(status.Transitions) != 2 {
		t.Fatalf("len(Transitions) = %d, want 2", len(status.Transitions))
	}
	// Deterministic key order.
	if status.Transitions[0].Key != "approve" || status.Transitions[1].Key != "reject" {
		t.Errorf("transition order = [%s %s], want [approve reject]",
			status.Transitions[0].Key, status.Transitions[1].Key)
	}
}

func TestEvaluateFailsClosed(t *testing.T) {
	e := newEngine()
	def := approvalWorkflow()

	for _, record := range []map[string]any{
		{},
		{"status": "archived"},
		{"status": 42},
	} {
		status := e.Evaluate(def, record)
		if status.Known {
			t.Errorf("record %v: state should be unknown", record)
		}
		if status.CanEdit || status.CanDelete || len(status.Transitions) > 0 {
			t.Errorf("record %v: unknown state must grant nothing, got %+v", record, status)
		}
	}
}

// States permit editing unless allow_edit is explicitly false;
// allow_delete is off unless explicitly granted.
func TestEvaluateEditDefaultsOpen(t *testing.T) {
	e := newEngine()
	def := schema.WorkflowDefinition{
		InitialState: "open",
		States:       map[string]schema.State{"open": {Label: "Open"}},
	}

	status := e.Evaluate(def, map[string]any{"status": "open"})
	if !status.CanEdit {
		t.Error("state without allow_edit should permit editing")
	}
	if status.CanDelete {
		t.Error("state without allow_delete should not permit deleting")
	}
}

func TestEvaluateNeverFallsBackToInitial(t *testing.T) {
	e := newEngine()
	status := e.Evaluate(approvalWorkflow(), map[string]any{})

	if status.State == "draft" {
		t.Error("absent state must not resolve to the initial state")
	}
}

func TestAuthorize(t *testing.T) {
	e := newEngine()
	def := approvalWorkflow()

	tr, err := e.Authorize(def, map[string]any{"status": "draft", "total": 50}, "submit", nil)
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if tr.To != "submitted" || tr.Action != "submit" {
		t.Errorf("transition = %+v", tr)
	}
}

func TestAuthorizeOrdering(t *testing.T) {
	e := newEngine()
	def := approvalWorkflow()

	tests := []struct {
		name       string
		record     map[string]any
		transition string
		granted    []string
		wantKind   fault.Kind
	}{
		{
			name:       "transition not from current state",
			record:     map[string]any{"status": "approved"},
			transition: "submit",
			wantKind:   fault.KindNoSuchTransition,
		},
		{
			name:       "unknown transition key",
			record:     map[string]any{"status": "draft"},
			transition: "archive",
			wantKind:   fault.KindNoSuchTransition,
		},
		{
			name:       "unknown record state",
			record:     map[string]any{"status": "limbo"},
			transition: "submit",
			wantKind:   fault.KindNoSuchTransition,
		},
		{
			name:       "missing permission",
			record:     map[string]any{"status": "submitted"},
			transition: "approve",
			wantKind:   fault.KindForbidden,
		},
		{
			name:       "guard disables",
			record:     map[string]any{"status": "draft", "total": 0},
			transition: "submit",
			wantKind:   fault.KindTransitionDisabled,
		},
		{
			name:       "permission granted",
			record:     map[string]any{"status": "submitted"},
			transition: "approve",
			granted:    []string{"finance.approve"},
			wantKind:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Authorize(def, tt.record, tt.transition, tt.granted)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("Authorize() error = %v, want nil", err)
				}
				return
			}
			if fault.KindOf(err) != tt.wantKind {
				t.Errorf("Authorize() kind = %q (%v), want %q", fault.KindOf(err), err, tt.wantKind)
			}
		})
	}
}

// A transition listing several permissions needs only one of them held.
func TestAuthorizeAnyPermissionSuffices(t *testing.T) {
	e := newEngine()
	def := approvalWorkflow()
	record := map[string]any{"status": "submitted"}

	if _, err := e.Authorize(def, record, "approve", []string{"finance.admin"}); err != nil {
		t.Fatalf("Authorize() with one of two permissions: %v", err)
	}
	_, err := e.Authorize(def, record, "approve", []string{"sales.view"})
	if fault.KindOf(err) != fault.KindForbidden {
		t.Errorf("kind = %q, want forbidden when no listed permission is held", fault.KindOf(err))
	}
}

// Existence is checked before permissions: a caller without permission
// asking about a nonexistent transition learns only that it does not exist.
func TestAuthorizeExistenceBeforePermission(t *testing.T) {
	e := newEngine()
	def := approvalWorkflow()

	_, err := e.Authorize(def, map[string]any{"status": "draft"}, "approve", nil)
	if fault.KindOf(err) != fault.KindNoSuchTransition {
		t.Errorf("kind = %q, want no_such_transition before forbidden", fault.KindOf(err))
	}
}
