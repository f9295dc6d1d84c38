package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dracoqcca/eufyvac/internal/core"
)

// HealthHandler returns a simple OK for liveness checks.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// RegistryHandler serves plugin discovery as JSON under /registry/.
func RegistryHandler(registry *core.RegistryService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/registry/plugins")
		rest = strings.Trim(rest, "/")
		if rest == "" {
			writeJSON(w, map[string]any{"plugins": registry.ListPlugins()})
			return
		}
		descriptor, ok := registry.DescribePlugin(rest)
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, descriptor)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
