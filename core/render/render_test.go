package render

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
	"github.com/terahq/tera/core/workflow"
)

func newRenderer() *Renderer {
	eval := condition.New()
	return New(eval, workflow.New(eval, zerolog.Nop()), zerolog.Nop())
}

func boolPtr(v bool) *bool { return &v }

func financeModule() schema.ModuleDefinition {
	return schema.ModuleDefinition{
		Meta: schema.ModuleMeta{ID: "finance", Name: "Finance"},
		Screens: map[string]schema.ScreenDefinition{
			"invoice_list": {
				Title: "Invoices", Type: schema.ScreenList,
				Path:         "/finance/invoices",
				CreateScreen: "invoice_new",
				ListConfig: &schema.ListConfig{
					Columns:          []string{"number", "customer", "total", "status"},
					SearchableFields: []string{"number", "customer"},
					Paginated:        true,
					PageSize:         25,
					RowActions: []schema.RowAction{
						{Label: "Open", NavigateTo: "/finance/invoices/{id}"},
						{Label: "Void", Action: "void", Permissions: []string{"finance.void"}},
					},
				},
			},
			"invoice_detail": {
				Title: "Invoice", Type: schema.ScreenDetail,
				Path: "/finance/invoices/{id}",
				DetailConfig: &schema.DetailConfig{
					Form:    "invoice_form",
					Actions: []string{"submit"},
				},
			},
			"restricted": {
				Title: "Restricted", Type: schema.ScreenList,
				Path:        "/finance/restricted",
				Permissions: []string{"finance.admin", "finance.audit"},
			},
		},
		Forms: map[string]schema.FormDefinition{
			"invoice_form": {
				Title: "Invoice",
				Fields: map[string]schema.FieldDefinition{
					"number":   {Type: schema.FieldText, Label: "Number", Required: true},
					"quantity": {Type: schema.FieldNumber, Label: "Quantity"},
					"price":    {Type: schema.FieldDecimal, Label: "Price"},
					"total": {
						Type: schema.FieldDecimal, Label: "Total",
						Formula: "quantity * price",
					},
					"discount_code": {
						Type: schema.FieldText, Label: "Discount Code",
						HiddenIf: "total < 100",
					},
					"customer": {
						Type: schema.FieldText, Label: "Customer",
						DisabledIf: `status == "submitted"`,
					},
				},
			},
		},
		Workflows: map[string]schema.WorkflowDefinition{
			"approval": {
				InitialState: "draft",
				States: map[string]schema.State{
					"draft": {
						Label: "Draft", AllowDelete: true,
						CanTransitionTo: []string{"submitted"},
					},
					"submitted": {Label: "Submitted", AllowEdit: boolPtr(false)},
				},
				Transitions: map[string]schema.Transition{
					"submit": {
						From: "draft", To: "submitted", Label: "Submit", Action: "submit",
						Permissions: []string{"finance.submit"},
					},
				},
			},
		},
		Actions: map[string]schema.ActionDefinition{
			"submit": {Type: schema.ActionAPI, Method: "POST", Endpoint: "/api/invoices/{id}/submit"},
			"void":   {Type: schema.ActionAPI, Method: "POST", Endpoint: "/api/invoices/{id}/void"},
		},
	}
}

func TestRenderList(t *testing.T) {
	r := newRenderer()

	view, err := r.RenderList(financeModule(), "invoice_list", nil)
	if err != nil {
		t.Fatalf("RenderList() error = %v", err)
	}

	if view.Title != "Invoices" || view.PageSize != 25 {
		t.Errorf("view = %+v", view)
	}
	if len(view.Columns) != 4 {
		t.Errorf("Columns = %v", view.Columns)
	}
	if view.CreateScreen != "invoice_new" {
		t.Errorf("CreateScreen = %q", view.CreateScreen)
	}
	// The void row action needs finance.void, which the caller lacks.
	if len(view.RowActions) != 1 || view.RowActions[0].Label != "Open" {
		t.Errorf("RowActions = %+v, want only Open", view.RowActions)
	}
}

func TestRenderListRowActionWithPermission(t *testing.T) {
	r := newRenderer()

	view, err := r.RenderList(financeModule(), "invoice_list", []string{"finance.void"})
	if err != nil {
		t.Fatal(err)
	}
	if len(view.RowActions) != 2 {
		t.Errorf("RowActions = %+v, want both", view.RowActions)
	}
}

func TestRenderListForbidden(t *testing.T) {
	r := newRenderer()

	_, err := r.RenderList(financeModule(), "restricted", nil)
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("RenderList() = %v, want forbidden", err)
	}

	if _, err := r.RenderList(financeModule(), "restricted", []string{"finance.admin"}); err != nil {
		t.Errorf("RenderList() with permission = %v", err)
	}
}

// Screen permissions are satisfied by any one of the listed
// permissions, matching the workflow engine's transition check.
func TestRenderListAnyPermissionSuffices(t *testing.T) {
	r := newRenderer()

	if _, err := r.RenderList(financeModule(), "restricted", []string{"finance.audit"}); err != nil {
		t.Errorf("RenderList() with one of two permissions = %v", err)
	}
	_, err := r.RenderList(financeModule(), "restricted", []string{"finance.submit"})
	if !fault.IsKind(err, fault.KindForbidden) {
		t.Errorf("RenderList() = %v, want forbidden when no listed permission is held", err)
	}
}

func TestRenderListUnknownScreen(t *testing.T) {
	r := newRenderer()
	_, err := r.RenderList(financeModule(), "ghost", nil)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("RenderList() = %v, want not_found", err)
	}
}

func TestRenderDetailDraft(t *testing.T) {
	r := newRenderer()
	record := map[string]any{"status": "draft", "quantity": 40, "price": 5.0}

	view, err := r.RenderDetail(financeModule(), "invoice_detail", record, []string{"finance.submit"})
	if err != nil {
		t.Fatalf("RenderDetail() error = %v", err)
	}

	if !view.CanEdit || !view.CanDelete {
		t.Error("draft record should be editable and deletable")
	}
	status := view.Workflows["approval"]
	if len(status.Transitions) != 1 || status.Transitions[0].Key != "submit" {
		t.Errorf("Transitions = %+v", status.Transitions)
	}
	if view.Form == nil {
		t.Fatal("detail view should embed its form")
	}

	fields := fieldMap(view.Form)
	if got := fields["total"].Value; got != 200.0 {
		t.Errorf("total = %v, want recomputed 200", got)
	}
	if fields["total"].Editable {
		t.Error("formula field must not be editable")
	}
	if fields["discount_code"].Hidden {
		t.Error("discount_code should be visible, total is not below 100")
	}
	if !fields["customer"].Editable {
		t.Error("customer should be editable while draft")
	}
}

func TestRenderDetailSubmitted(t *testing.T) {
	r := newRenderer()
	record := map[string]any{"status": "submitted", "quantity": 1, "price": 10.0}

	view, err := r.RenderDetail(financeModule(), "invoice_detail", record, nil)
	if err != nil {
		t.Fatal(err)
	}

	if view.CanEdit || view.CanDelete {
		t.Error("submitted record should be locked")
	}
	fields := fieldMap(view.Form)
	for _, f := range fields {
		if f.Editable {
			t.Errorf("field %s editable on a locked record", f.Key)
		}
	}
	if !fields["discount_code"].Hidden {
		t.Error("discount_code should hide when total < 100")
	}
}

func TestRenderDetailTransitionPermissionFilter(t *testing.T) {
	r := newRenderer()
	record := map[string]any{"status": "draft"}

	view, err := r.RenderDetail(financeModule(), "invoice_detail", record, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := view.Workflows["approval"].Transitions; len(got) != 0 {
		t.Errorf("Transitions = %+v, want submit filtered out without finance.submit", got)
	}
}

func TestRenderDetailUnknownStateLocks(t *testing.T) {
	r := newRenderer()
	record := map[string]any{"status": "limbo"}

	view, err := r.RenderDetail(financeModule(), "invoice_detail", record, nil)
	if err != nil {
		t.Fatal(err)
	}
	if view.CanEdit || view.CanDelete {
		t.Error("unknown workflow state must lock the record")
	}
}

func TestRenderFormDefaults(t *testing.T) {
	r := newRenderer()

	def := financeModule()
	form := def.Forms["invoice_form"]
	number := form.Fields["number"]
	number.Default = "INV-0001"
	form.Fields["number"] = number

	view, err := r.RenderForm(def, "invoice_form", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}

	fields := fieldMap(&view)
	if fields["number"].Value != "INV-0001" {
		t.Errorf("number = %v, want default", fields["number"].Value)
	}
	if got := fields["total"].Value; got != 0.0 {
		t.Errorf("total = %v, want 0 on empty record", got)
	}
}

func TestRenderFormLayoutOrder(t *testing.T) {
	r := newRenderer()

	def := financeModule()
	form := def.Forms["invoice_form"]
	form.Layout = &schema.FormLayout{
		Type: schema.LayoutGrid,
		Sections: []schema.LayoutSection{
			{Title: "Totals", Fields: []string{"quantity", "price", "total"}},
		},
	}
	def.Forms["invoice_form"] = form

	view, err := r.RenderForm(def, "invoice_form", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}

	if view.Fields[0].Key != "quantity" || view.Fields[1].Key != "price" || view.Fields[2].Key != "total" {
		t.Errorf("layout order not honored: %v", keysOf(view.Fields))
	}
	// Fields outside the layout still render.
	if len(view.Fields) != len(form.Fields) {
		t.Errorf("len(Fields) = %d, want %d", len(view.Fields), len(form.Fields))
	}
}

// A formula may reference another computed field; the chained result
// must come out the same on every render.
func TestRenderFormChainedFormulas(t *testing.T) {
	r := newRenderer()
	def := schema.ModuleDefinition{
		Meta: schema.ModuleMeta{ID: "finance", Name: "Finance"},
		Forms: map[string]schema.FormDefinition{
			"quote": {
				Title: "Quote",
				Fields: map[string]schema.FieldDefinition{
					"quantity": {Type: schema.FieldNumber, Label: "Quantity"},
					"price":    {Type: schema.FieldDecimal, Label: "Price"},
					"subtotal": {
						Type: schema.FieldDecimal, Label: "Subtotal",
						Formula: "quantity * price",
					},
					"total": {
						Type: schema.FieldDecimal, Label: "Total",
						Formula: "subtotal * 2",
					},
					"discount": {
						Type: schema.FieldText, Label: "Discount",
						HiddenIf: "total < 40",
					},
				},
			},
		},
	}
	record := map[string]any{"quantity": 4, "price": 5.0}

	for i := 0; i < 50; i++ {
		view, err := r.RenderForm(def, "quote", record)
		if err != nil {
			t.Fatal(err)
		}
		fields := fieldMap(&view)
		if got := fields["total"].Value; got != 40.0 {
			t.Fatalf("render %d: total = %v, want 40", i, got)
		}
		if fields["discount"].Hidden {
			t.Fatalf("render %d: discount hidden, total settles at 40", i)
		}
	}
}

func TestRenderFormUnknownForm(t *testing.T) {
	r := newRenderer()
	_, err := r.RenderForm(financeModule(), "ghost", nil)
	if !fault.IsKind(err, fault.KindNotFound) {
		t.Errorf("RenderForm() = %v, want not_found", err)
	}
}

func fieldMap(form *FormView) map[string]FieldView {
	out := make(map[string]FieldView, len(form.Fields))
	for _, f := range form.Fields {
		out[f.Key] = f
	}
	return out
}

func keysOf(fields []FieldView) []string {
	var keys []string
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	return keys
}
