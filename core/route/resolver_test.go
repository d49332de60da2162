package route

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/terahq/tera/core/fault"
	"github.com/terahq/tera/core/schema"
)

func testModules() map[string]schema.ModuleDefinition {
	return map[string]schema.ModuleDefinition{
		"finance": {
			Meta: schema.ModuleMeta{ID: "finance", Name: "Finance"},
			Screens: map[string]schema.ScreenDefinition{
				"invoice_list": {
					Title: "Invoices", Type: schema.ScreenList,
					Path: "/finance/invoices",
				},
				"invoice_new": {
					Title: "New Invoice", Type: schema.ScreenForm,
					Path: "/finance/invoices/new",
				},
				"invoice_detail": {
					Title: "Invoice", Type: schema.ScreenDetail,
					Path: "/finance/invoices/{id}",
				},
			},
		},
		"crm": {
			Meta: schema.ModuleMeta{ID: "crm", Name: "CRM"},
			Screens: map[string]schema.ScreenDefinition{
				"lead_list": {
					Title: "Leads", Type: schema.ScreenList,
					Path: "/crm/leads",
				},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(testModules(), zerolog.Nop())

	tests := []struct {
		name string
		path string
		want Match
	}{
		{
			name: "list path",
			path: "/finance/invoices",
			want: Match{ModuleID: "finance", ScreenID: "invoice_list"},
		},
		{
			name: "trailing slash ignored",
			path: "/finance/invoices/",
			want: Match{ModuleID: "finance", ScreenID: "invoice_list"},
		},
		{
			name: "detail path captures record id",
			path: "/finance/invoices/inv-42",
			want: Match{ModuleID: "finance", ScreenID: "invoice_detail", RecordID: "inv-42"},
		},
		{
			name: "detail path with trailing slash",
			path: "/finance/invoices/inv-42/",
			want: Match{ModuleID: "finance", ScreenID: "invoice_detail", RecordID: "inv-42"},
		},
		{
			name: "literal beats template",
			path: "/finance/invoices/new",
			want: Match{ModuleID: "finance", ScreenID: "invoice_new"},
		},
		{
			name: "other module",
			path: "/crm/leads",
			want: Match{ModuleID: "crm", ScreenID: "lead_list"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve(%q) error = %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	r := NewResolver(testModules(), zerolog.Nop())

	for _, path := range []string{
		"/finance",
		"/finance/invoices/inv-1/lines",
		"/Finance/invoices", // matching is case-sensitive
		"/unknown",
	} {
		_, err := r.Resolve(path)
		if !fault.IsKind(err, fault.KindNotFound) {
			t.Errorf("Resolve(%q) = %v, want not_found", path, err)
		}
	}
}

func TestResolveIDDoesNotSpanSegments(t *testing.T) {
	r := NewResolver(testModules(), zerolog.Nop())

	if _, err := r.Resolve("/finance/invoices/a/b"); err == nil {
		t.Error("an {id} segment must not match across slashes")
	}
}

func TestResolveDuplicatePathFirstWins(t *testing.T) {
	modules := testModules()
	crm := modules["crm"]
	crm.Screens["invoice_clash"] = schema.ScreenDefinition{
		Title: "Clash", Type: schema.ScreenList,
		Path: "/finance/invoices",
	}
	modules["crm"] = crm

	r := NewResolver(modules, zerolog.Nop())

	got, err := r.Resolve("/finance/invoices")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	// crm sorts before finance, so its screen wins deterministically.
	if got.ModuleID != "crm" || got.ScreenID != "invoice_clash" {
		t.Errorf("Resolve() = %+v, want the first declaration in key order", got)
	}
}
