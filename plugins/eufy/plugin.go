package eufy

import (
	_ "embed"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dracoqcca/eufyvac/internal/core"
	"github.com/dracoqcca/eufyvac/internal/session"
)

//go:embed AGENTS.md
var agentsMD string

//go:embed dashboard.json
var dashboardJSON []byte

// Plugin implements the plugin contract for Eufy RoboVac devices.
type Plugin struct {
	client        *Client
	health        core.HealthStatus
	healthMessage string
}

// NewPlugin constructs the Eufy plugin from config. A broken config
// still yields a plugin so the registry can report the error.
func NewPlugin(cfg Config, sessions *session.Manager) Plugin {
	client, err := NewClient(cfg, sessions)
	if err != nil {
		return Plugin{health: core.HealthError, healthMessage: err.Error()}
	}
	return Plugin{client: client, health: core.HealthHealthy}
}

// Client exposes the underlying client for lifecycle control.
func (p Plugin) Client() *Client {
	return p.client
}

func (p Plugin) ID() string {
	return "eufy"
}

func (p Plugin) Manifest() core.Manifest {
	return core.Manifest{
		PluginID:    "eufy",
		DisplayName: "Eufy RoboVac",
		Version:     "0.1.0",
		Endpoints: []string{
			"/plugins/eufy/devices",
			"/plugins/eufy/telemetry",
		},
	}
}

func (p Plugin) AgentsMD() string {
	return agentsMD
}

func (p Plugin) Dashboards() []core.Dashboard {
	return []core.Dashboard{{Name: "eufy-overview", JSON: dashboardJSON}}
}

func (p Plugin) Collectors() []prometheus.Collector {
	if p.client == nil {
		return nil
	}
	collectors := []prometheus.Collector{NewMetricsCollector(p.client)}
	return append(collectors, PollCollectors()...)
}

func (p Plugin) Health() core.HealthStatus {
	return p.health
}

func (p Plugin) HealthMessage() string {
	return p.healthMessage
}
