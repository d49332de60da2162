package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/terahq/tera/adapters/clock"
	"github.com/terahq/tera/adapters/idgen"
	"github.com/terahq/tera/adapters/memory"
	"github.com/terahq/tera/adapters/metrics"
	"github.com/terahq/tera/app"
	"github.com/terahq/tera/core/action"
	"github.com/terahq/tera/core/condition"
	"github.com/terahq/tera/core/registry"
	"github.com/terahq/tera/core/render"
	"github.com/terahq/tera/core/workflow"
	"github.com/terahq/tera/ports"
)

const crmYAML = `
module:
  id: crm
  name: CRM
permissions: [crm.read, crm.write]
configurables:
  lead_prefix:
    label: Lead prefix
    type: text
    default: LEAD
menu:
  - label: Leads
    screen: lead_list
  - label: Admin
    screen: lead_list
    permissions: [crm.admin]
screens:
  lead_list:
    title: Leads
    type: list
    path: /crm/leads
  lead_detail:
    title: Lead
    type: detail
    path: /crm/leads/{id}
    detail_config:
      form: lead_form
forms:
  lead_form:
    title: Lead
    fields:
      name:
        type: text
        label: Name
        required: true
workflows:
  pipeline:
    initial_state: new
    states:
      new:
        label: New
        allow_edit: true
        can_transition_to: [qualified]
      qualified:
        label: Qualified
    transitions:
      qualify:
        from: new
        to: qualified
        label: Qualify
        action: qualify
actions:
  qualify:
    type: api
    method: POST
    endpoint: /api/leads/{id}/qualify
    success_message: Lead qualified
`

type stubAPI struct {
	resp ports.APIResponse
	err  error
}

func (s *stubAPI) Call(context.Context, string, string, map[string]any) (ports.APIResponse, error) {
	return s.resp, s.err
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "crm.yaml"), []byte(crmYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	log := zerolog.Nop()
	eval := condition.New()
	reg, err := registry.New(dir, eval, log)
	if err != nil {
		t.Fatal(err)
	}

	wf := workflow.New(eval, log)
	collector := metrics.New(prometheus.NewRegistry())
	modules := app.NewModuleService(reg, memory.NewStatusStore(), memory.NewSettingStore(),
		clock.NewFake(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)), log)
	engine := app.NewEngineService(reg, modules, render.New(eval, wf, log),
		action.NewDispatcher(&stubAPI{resp: ports.APIResponse{StatusCode: 200}}, idgen.NewSequential("exec"), log),
		wf, collector, log)

	handler := NewHandler(engine, modules, log)
	srv := httptest.NewServer(handler.Router(Config{Metrics: collector, EnableOpenAPI: true}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, doc
}

func TestHealthAndReady(t *testing.T) {
	srv := newServer(t)

	status, _ := doJSON(t, http.MethodGet, srv.URL+"/healthz", "", nil)
	if status != http.StatusOK {
		t.Errorf("healthz = %d", status)
	}
	status, doc := doJSON(t, http.MethodGet, srv.URL+"/readyz", "", nil)
	if status != http.StatusOK {
		t.Errorf("readyz = %d: %v", status, doc)
	}
}

func TestListAndGetModule(t *testing.T) {
	srv := newServer(t)

	status, doc := doJSON(t, http.MethodGet, srv.URL+"/api/modules", "", nil)
	if status != http.StatusOK {
		t.Fatalf("list = %d: %v", status, doc)
	}
	list, ok := doc["data"].([]any)
	if !ok || len(list) != 1 {
		t.Fatalf("data = %v", doc["data"])
	}

	status, doc = doJSON(t, http.MethodGet, srv.URL+"/api/modules/crm", "", nil)
	if status != http.StatusOK {
		t.Fatalf("get = %d", status)
	}
	data := doc["data"].(map[string]any)
	if data["module"].(map[string]any)["id"] != "crm" {
		t.Errorf("module = %v", data["module"])
	}

	status, _ = doJSON(t, http.MethodGet, srv.URL+"/api/modules/ghost", "", nil)
	if status != http.StatusNotFound {
		t.Errorf("unknown module = %d, want 404", status)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newServer(t)

	status, doc := doJSON(t, http.MethodPut, srv.URL+"/api/modules/crm/status", `{"enabled": false}`, nil)
	if status != http.StatusOK {
		t.Fatalf("put status = %d: %v", status, doc)
	}

	status, doc = doJSON(t, http.MethodGet, srv.URL+"/api/modules/crm/status", "", nil)
	if status != http.StatusOK {
		t.Fatal(doc)
	}
	if doc["data"].(map[string]any)["enabled"] != false {
		t.Errorf("status = %v", doc["data"])
	}

	// Disabled modules stay invisible to the resolver.
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/resolve", `{"path": "/crm/leads"}`, nil)
	if status != http.StatusNotFound {
		t.Errorf("resolve into disabled module = %d, want 404", status)
	}
}

func TestResolveAndRender(t *testing.T) {
	srv := newServer(t)

	status, doc := doJSON(t, http.MethodPost, srv.URL+"/api/resolve", `{"path": "/crm/leads/l-7"}`, nil)
	if status != http.StatusOK {
		t.Fatalf("resolve = %d: %v", status, doc)
	}
	data := doc["data"].(map[string]any)
	if data["screen_id"] != "lead_detail" || data["record_id"] != "l-7" {
		t.Errorf("match = %v", data)
	}

	body := `{"path": "/crm/leads/l-7", "record": {"status": "new", "name": "Acme"}}`
	status, doc = doJSON(t, http.MethodPost, srv.URL+"/api/render", body, nil)
	if status != http.StatusOK {
		t.Fatalf("render = %d: %v", status, doc)
	}
	view := doc["data"].(map[string]any)
	if view["can_edit"] != true {
		t.Errorf("view = %v", view)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/render", `{}`, nil)
	if status != http.StatusBadRequest {
		t.Errorf("render without target = %d, want 400", status)
	}
}

func TestModuleScopedResolveAndRender(t *testing.T) {
	srv := newServer(t)

	status, doc := doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/resolve", `{"path": "/crm/leads"}`, nil)
	if status != http.StatusOK {
		t.Fatalf("resolve = %d: %v", status, doc)
	}
	if doc["data"].(map[string]any)["screen_id"] != "lead_list" {
		t.Errorf("match = %v", doc["data"])
	}

	// A path belonging to another (or no) module is a miss here.
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/resolve", `{"path": "/other/things"}`, nil)
	if status != http.StatusNotFound {
		t.Errorf("foreign path = %d, want 404", status)
	}

	body := `{"record": {"status": "new", "name": "Acme"}}`
	status, doc = doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/screens/lead_detail/render", body, nil)
	if status != http.StatusOK {
		t.Fatalf("render = %d: %v", status, doc)
	}
	if doc["data"].(map[string]any)["screen_id"] != "lead_detail" {
		t.Errorf("view = %v", doc["data"])
	}
}

func TestExecuteActionEndpoint(t *testing.T) {
	srv := newServer(t)

	body := `{"transition": "qualify", "record_id": "l-1", "record": {"status": "new"}}`
	status, doc := doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/actions/qualify", body, nil)
	if status != http.StatusOK {
		t.Fatalf("action = %d: %v", status, doc)
	}
	result := doc["data"].(map[string]any)
	if result["success"] != true || result["message"] != "Lead qualified" {
		t.Errorf("result = %v", result)
	}

	// Already qualified records cannot transition again.
	body = `{"transition": "qualify", "record_id": "l-1", "record": {"status": "qualified"}}`
	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/actions/qualify", body, nil)
	if status != http.StatusConflict {
		t.Errorf("illegal transition = %d, want 409", status)
	}
}

func TestConfigurablesEndpoint(t *testing.T) {
	srv := newServer(t)

	body := `{"values": {"lead_prefix": "LD"}}`
	status, doc := doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/configurables", body, nil)
	if status != http.StatusOK {
		t.Fatalf("post = %d: %v", status, doc)
	}
	values := doc["data"].(map[string]any)
	if values["lead_prefix"].(map[string]any)["value"] != "LD" {
		t.Errorf("values = %v", values)
	}

	status, _ = doJSON(t, http.MethodPost, srv.URL+"/api/modules/crm/configurables", `{"values": {"nope": 1}}`, nil)
	if status != http.StatusUnprocessableEntity {
		t.Errorf("unknown key = %d, want 422", status)
	}
}

func TestMenuFiltersByPermission(t *testing.T) {
	srv := newServer(t)

	status, doc := doJSON(t, http.MethodGet, srv.URL+"/api/menu", "", nil)
	if status != http.StatusOK {
		t.Fatal(doc)
	}
	items := doc["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("anonymous menu = %v", items)
	}

	headers := map[string]string{PermissionsHeader: "crm.admin, crm.read"}
	_, doc = doJSON(t, http.MethodGet, srv.URL+"/api/menu", "", headers)
	items = doc["data"].([]any)
	if len(items) != 2 {
		t.Errorf("admin menu = %v", items)
	}
}

func TestReloadEndpoint(t *testing.T) {
	srv := newServer(t)

	status, doc := doJSON(t, http.MethodPost, srv.URL+"/api/reload", "", nil)
	if status != http.StatusOK {
		t.Fatalf("reload = %d: %v", status, doc)
	}
	if doc["data"].(map[string]any)["modules"] != float64(1) {
		t.Errorf("reload data = %v", doc["data"])
	}
}

func TestOpenAPISpec(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/openapi.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var spec map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&spec); err != nil {
		t.Fatal(err)
	}
	if spec["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v", spec["openapi"])
	}
}
