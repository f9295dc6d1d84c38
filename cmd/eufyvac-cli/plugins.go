package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dracoqcca/eufyvac/internal/core"
)

func pluginsCmd(ctx context.Context, args []string, jsonOutput bool) {
	out := outputMode{json: jsonOutput}
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "list":
		var resp struct {
			Plugins []core.PluginSummary `json:"plugins"`
		}
		if err := httpGet(ctx, "/registry/plugins", &resp); err != nil {
			fatal("list plugins", err)
		}
		if out.json {
			out.printJSON(resp.Plugins)
			return
		}
		rows := [][]string{{"ID", "NAME", "VERSION", "STATUS"}}
		for _, plugin := range resp.Plugins {
			rows = append(rows, []string{plugin.PluginID, plugin.DisplayName, plugin.Version, plugin.Status})
		}
		out.table(rows)
	case "describe":
		if len(args) < 2 {
			fatal("describe", fmt.Errorf("missing plugin id"))
		}
		var descriptor core.PluginDescriptor
		if err := httpGet(ctx, "/registry/plugins/"+args[1], &descriptor); err != nil {
			fatal("describe plugin", err)
		}
		if out.json {
			out.printJSON(descriptor)
			return
		}
		fmt.Printf("id: %s\n", descriptor.PluginID)
		fmt.Printf("name: %s\n", descriptor.DisplayName)
		fmt.Printf("version: %s\n", descriptor.Version)
		fmt.Printf("status: %s\n", descriptor.Status)
		if descriptor.HealthMessage != "" {
			fmt.Printf("health: %s\n", descriptor.HealthMessage)
		}
		fmt.Println("endpoints:")
		for _, endpoint := range descriptor.Endpoints {
			fmt.Printf("  - %s\n", endpoint)
		}
		fmt.Println("dashboards:")
		for _, dash := range descriptor.Dashboards {
			fmt.Printf("  - %s (%s)\n", dash.Name, dash.Path)
		}
		fmt.Println("agents_md:")
		fmt.Println(descriptor.AgentsMD)
	default:
		usage()
		os.Exit(2)
	}
}
