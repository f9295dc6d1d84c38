package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dracoqcca/eufyvac/internal/core"
)

type fakePlugin struct{}

func (fakePlugin) ID() string { return "demo" }
func (fakePlugin) Manifest() core.Manifest {
	return core.Manifest{PluginID: "demo", DisplayName: "Demo", Version: "0.1.0"}
}
func (fakePlugin) AgentsMD() string                   { return "demo" }
func (fakePlugin) Dashboards() []core.Dashboard       { return nil }
func (fakePlugin) RegisterHTTP(*http.ServeMux)        {}
func (fakePlugin) Collectors() []prometheus.Collector { return nil }
func (fakePlugin) Health() core.HealthStatus          { return core.HealthHealthy }
func (fakePlugin) HealthMessage() string              { return "" }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRegistryHandlerList(t *testing.T) {
	registry := core.NewRegistryService([]core.Plugin{fakePlugin{}})
	handler := RegistryHandler(registry)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registry/plugins", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Plugins []core.PluginSummary `json:"plugins"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Plugins) != 1 || resp.Plugins[0].PluginID != "demo" {
		t.Fatalf("plugins = %+v", resp.Plugins)
	}
}

func TestRegistryHandlerDescribe(t *testing.T) {
	registry := core.NewRegistryService([]core.Plugin{fakePlugin{}})
	handler := RegistryHandler(registry)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registry/plugins/demo", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var descriptor core.PluginDescriptor
	if err := json.Unmarshal(rec.Body.Bytes(), &descriptor); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if descriptor.PluginID != "demo" || descriptor.AgentsMD != "demo" {
		t.Fatalf("descriptor = %+v", descriptor)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registry/plugins/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing plugin status = %d", rec.Code)
	}
}

func TestDashboardsHandler(t *testing.T) {
	handler := DashboardsHandler(map[string][]byte{
		"/dashboards/demo/demo.json": []byte(`{"title":"Demo"}`),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboards/demo/demo.json", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("dashboard = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboards/none.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing dashboard status = %d", rec.Code)
	}
}
