package core

import "sync"

// PluginSummary is the registry listing row for one plugin.
type PluginSummary struct {
	PluginID    string `json:"plugin_id"`
	DisplayName string `json:"display_name"`
	Version     string `json:"version"`
	Status      string `json:"status"`
}

// DashboardRef points at a served dashboard asset.
type DashboardRef struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// PluginDescriptor is the full registry record for one plugin.
type PluginDescriptor struct {
	PluginSummary
	Endpoints     []string       `json:"endpoints,omitempty"`
	AgentsMD      string         `json:"agents_md,omitempty"`
	HealthMessage string         `json:"health_message,omitempty"`
	Dashboards    []DashboardRef `json:"dashboards,omitempty"`
}

// RegistryService provides plugin discovery to clients.
type RegistryService struct {
	plugins []Plugin
	mu      sync.RWMutex
}

func NewRegistryService(plugins []Plugin) *RegistryService {
	return &RegistryService{plugins: plugins}
}

func (r *RegistryService) ListPlugins() []PluginSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PluginSummary, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, summarize(p))
	}
	return out
}

func (r *RegistryService) DescribePlugin(pluginID string) (PluginDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		manifest := p.Manifest()
		if manifest.PluginID != pluginID {
			continue
		}

		descriptor := PluginDescriptor{
			PluginSummary: summarize(p),
			Endpoints:     manifest.Endpoints,
			AgentsMD:      p.AgentsMD(),
			HealthMessage: p.HealthMessage(),
		}
		for _, d := range p.Dashboards() {
			descriptor.Dashboards = append(descriptor.Dashboards, DashboardRef{
				Name: d.Name,
				Path: "/dashboards/" + manifest.PluginID + "/" + d.Name + ".json",
			})
		}
		return descriptor, true
	}
	return PluginDescriptor{}, false
}

func summarize(p Plugin) PluginSummary {
	manifest := p.Manifest()
	return PluginSummary{
		PluginID:    manifest.PluginID,
		DisplayName: manifest.DisplayName,
		Version:     manifest.Version,
		Status:      string(p.Health()),
	}
}

// FilterPlugins keeps the plugins enabled by config, or all of them
// when allowAll is set.
func FilterPlugins(compiled []Plugin, enabled map[string]bool, allowAll bool) []Plugin {
	if allowAll {
		return compiled
	}
	out := make([]Plugin, 0, len(compiled))
	for _, p := range compiled {
		if enabled[p.ID()] {
			out = append(out, p)
		}
	}
	return out
}
