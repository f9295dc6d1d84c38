package eufy

import (
	"encoding/json"
	"net/http"
	"strings"
)

// RegisterHTTP exposes the device registry and derived readings.
func (p Plugin) RegisterHTTP(mux *http.ServeMux) {
	if p.client == nil {
		return
	}
	mux.HandleFunc("/plugins/eufy/devices", p.handleDevices)
	mux.HandleFunc("/plugins/eufy/telemetry", p.handleTelemetry)
	mux.HandleFunc("/plugins/eufy/telemetry/", p.handleDeviceTelemetry)
}

func (p Plugin) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := p.client.Devices(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"devices": devices})
}

func (p Plugin) handleTelemetry(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"readings": p.client.Telemetry()})
}

func (p Plugin) handleDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/plugins/eufy/telemetry/"), "/")
	if deviceID == "" {
		http.NotFound(w, r)
		return
	}
	reading, ok := p.client.DeviceTelemetry(deviceID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, reading)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
