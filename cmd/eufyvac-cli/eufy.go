package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dracoqcca/eufyvac/plugins/eufy"
)

func eufyCmd(ctx context.Context, args []string, jsonOutput bool) {
	out := outputMode{json: jsonOutput}
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "devices":
		var resp struct {
			Devices []eufy.Device `json:"devices"`
		}
		if err := httpGet(ctx, "/plugins/eufy/devices", &resp); err != nil {
			fatal("eufy devices", err)
		}
		if out.json {
			out.printJSON(resp.Devices)
			return
		}
		rows := [][]string{{"ID", "NAME", "MODEL", "IP"}}
		for _, device := range resp.Devices {
			rows = append(rows, []string{device.ID, device.Name, device.Model, device.IP})
		}
		out.table(rows)
	case "telemetry":
		flags := flag.NewFlagSet("eufy telemetry", flag.ExitOnError)
		device := flags.String("device", "", "Device id or name")
		_ = flags.Parse(args[1:])
		if *device == "" {
			var resp struct {
				Readings []eufy.DeviceTelemetry `json:"readings"`
			}
			if err := httpGet(ctx, "/plugins/eufy/telemetry", &resp); err != nil {
				fatal("eufy telemetry", err)
			}
			if out.json {
				out.printJSON(resp.Readings)
				return
			}
			rows := [][]string{{"DEVICE", "STATE", "SUBSTATUS", "BATTERY", "CHARGING", "COUNT", "AREA", "AGE"}}
			for _, reading := range resp.Readings {
				rows = append(rows, telemetryRow(reading))
			}
			out.table(rows)
			return
		}
		deviceID, err := resolveDeviceID(ctx, *device)
		if err != nil {
			fatal("eufy telemetry", err)
		}
		var reading eufy.DeviceTelemetry
		if err := httpGet(ctx, "/plugins/eufy/telemetry/"+deviceID, &reading); err != nil {
			fatal("eufy telemetry", err)
		}
		if out.json {
			out.printJSON(reading)
			return
		}
		printReading(reading)
	default:
		usage()
		os.Exit(2)
	}
}

func resolveDeviceID(ctx context.Context, input string) (string, error) {
	var resp struct {
		Devices []eufy.Device `json:"devices"`
	}
	if err := httpGet(ctx, "/plugins/eufy/devices", &resp); err != nil {
		return "", err
	}
	options := make(map[string]string, len(resp.Devices))
	for _, device := range resp.Devices {
		options[device.Name] = device.ID
	}
	return resolveNamedID("device", input, options)
}

func telemetryRow(reading eufy.DeviceTelemetry) []string {
	t := reading.Telemetry
	return []string{
		reading.Device.Name,
		string(t.State),
		string(t.Substatus),
		optionalInt(t.Battery, "%"),
		strconv.FormatBool(t.Charging),
		optionalInt(t.TotalCount, ""),
		optionalInt(t.TotalAreaSqm, "m2"),
		time.Since(reading.UpdatedAt).Round(time.Second).String(),
	}
}

func printReading(reading eufy.DeviceTelemetry) {
	t := reading.Telemetry
	fmt.Printf("DEVICE:    %s (%s)\n", reading.Device.Name, reading.Device.ID)
	fmt.Printf("STATE:     %s\n", t.State)
	fmt.Printf("SUBSTATUS: %s\n", t.Substatus)
	fmt.Printf("STATUS:    %s\n", t.Status)
	fmt.Printf("BATTERY:   %s\n", optionalInt(t.Battery, "%"))
	fmt.Printf("CHARGING:  %t\n", t.Charging)
	fmt.Printf("COUNT:     %s\n", optionalInt(t.TotalCount, ""))
	fmt.Printf("AREA:      %s\n", optionalInt(t.TotalAreaSqm, "m2"))
	if reading.Stale {
		fmt.Println("STALE:     reading carried over from an earlier poll")
	}
}

func optionalInt(v *int, unit string) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v) + unit
}
