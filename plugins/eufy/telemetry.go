package eufy

import (
	"fmt"
	"strconv"
)

// DP codes consumed from the snapshot. The table is fixed for the
// S1 Pro family; unknown codes ride along in the snapshot untouched.
const (
	dpRunning    = "2"   // coarse running flag, bool; fallback for 153
	dpMode       = "5"   // operating mode token; charging detection
	dpBattery    = "8"   // primary battery percentage
	dpBatteryAlt = "163" // fallback battery percentage
	dpStatusBlob = "153" // detailed status blob, base64
	dpStatsBlob  = "167" // statistics blob, base64
)

// Snapshot is the DP-code-to-value mapping as of the most recent
// successful poll. Values arrive loosely typed from the device JSON:
// bools, numbers (float64 after decode), or base64 strings. A missing
// key means unknown, not false or zero. Snapshots are replaced
// wholesale and never mutated after capture.
type Snapshot map[string]any

// Telemetry carries the derived, user-facing values for one device.
type Telemetry struct {
	Battery      *int      `json:"battery_percent,omitempty"`
	Status       string    `json:"status"`
	State        State     `json:"state"`
	Substatus    Substatus `json:"substatus"`
	Charging     bool      `json:"charging"`
	TotalCount   *int      `json:"total_cleaning_count,omitempty"`
	TotalAreaSqm *int      `json:"total_cleaning_area_sqm,omitempty"`
}

// deriver turns raw snapshots into Telemetry. It owns the per-device
// monotonic counters, so it must only be driven by the single poll
// goroutine for its device.
type deriver struct {
	count *monotonicCounter
	area  *monotonicCounter
}

func newDeriver(deviceID string) *deriver {
	return &deriver{
		count: newMonotonicCounter(deviceID, "total_count"),
		area:  newMonotonicCounter(deviceID, "total_area"),
	}
}

func (d *deriver) Derive(snap Snapshot) Telemetry {
	t := Telemetry{
		Battery:  batteryPercent(snap),
		Charging: chargingFromMode(snap),
	}
	t.State, t.Substatus, t.Status = runningStatus(snap)

	var stats Statistics
	if raw, ok := snap[dpStatsBlob].(string); ok {
		stats = parseStatistics(raw)
	}
	t.TotalCount = d.count.Update(stats.TotalCount)
	t.TotalAreaSqm = d.area.Update(stats.TotalArea)
	return t
}

// batteryPercent reads DP 8, falling back to DP 163. Values outside
// 0..100 (or not numeric at all) are ignored.
func batteryPercent(snap Snapshot) *int {
	for _, code := range []string{dpBattery, dpBatteryAlt} {
		raw, ok := snap[code]
		if !ok {
			continue
		}
		v, ok := intValue(raw)
		if ok && v >= 0 && v <= 100 {
			return &v
		}
	}
	return nil
}

// runningStatus classifies DP 153; with no blob it falls back to the
// coarse DP 2 flag, and failing that reports Unknown.
func runningStatus(snap Snapshot) (State, Substatus, string) {
	if raw, ok := snap[dpStatusBlob].(string); ok && raw != "" {
		state, sub := classifyStatus(raw)
		return state, sub, describeSubstatus(sub)
	}
	if running, ok := snap[dpRunning].(bool); ok {
		if running {
			return StateCleaning, SubstatusUnknown, "Running"
		}
		return StateDocked, SubstatusUnknown, "Stopped"
	}
	return StateUnknown, SubstatusUnknown, "Unknown"
}

func chargingFromMode(snap Snapshot) bool {
	mode, _ := snap[dpMode].(string)
	switch mode {
	case "charge", "docked", "Charging":
		return true
	}
	return false
}

// intValue coerces the loose JSON typing of DP values into an int.
func intValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// uniqueID derives the stable per-value identifier used across the
// HTTP surface, MQTT topics, and metric labels.
func uniqueID(deviceID, dpKey string) string {
	return fmt.Sprintf("%s_dps_%s", deviceID, dpKey)
}
