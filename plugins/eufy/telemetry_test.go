package eufy

import "testing"

func TestDeriveFullSnapshot(t *testing.T) {
	d := newDeriver("dev1")

	snap := Snapshot{
		dpBattery:    float64(80),
		dpMode:       "Charging",
		dpStatusBlob: encodeStatusBlob(0x04, 0x01),
		dpStatsBlob: statsBlob(20, func(b []byte) {
			b[14] = 0x32
			b[18] = 0x18
			b[19] = 0x03
		}),
	}

	got := d.Derive(snap)
	if got.Battery == nil || *got.Battery != 80 {
		t.Fatalf("Battery = %v, want 80", got.Battery)
	}
	if got.State != StateDocked || got.Substatus != SubstatusCharging {
		t.Fatalf("state = (%s, %s), want (docked, charging)", got.State, got.Substatus)
	}
	if got.Status != "Charging" {
		t.Fatalf("Status = %q, want Charging", got.Status)
	}
	if !got.Charging {
		t.Fatalf("Charging = false, want true")
	}
	if got.TotalCount == nil || *got.TotalCount != 3 {
		t.Fatalf("TotalCount = %v, want 3", got.TotalCount)
	}
	if got.TotalAreaSqm == nil || *got.TotalAreaSqm != 50 {
		t.Fatalf("TotalAreaSqm = %v, want 50", got.TotalAreaSqm)
	}
}

func TestDeriveRetainsCountersOnDecrease(t *testing.T) {
	d := newDeriver("dev1")

	first := Snapshot{
		dpStatsBlob: statsBlob(20, func(b []byte) {
			b[14] = 0x32
			b[18] = 0x18
			b[19] = 0x03
		}),
	}
	d.Derive(first)

	// Lower count and area on the next poll must not surface.
	second := Snapshot{
		dpStatsBlob: statsBlob(20, func(b []byte) {
			b[14] = 0x28
			b[18] = 0x18
			b[19] = 0x01
		}),
	}
	got := d.Derive(second)
	if got.TotalCount == nil || *got.TotalCount != 3 {
		t.Fatalf("TotalCount after decrease = %v, want 3", got.TotalCount)
	}
	if got.TotalAreaSqm == nil || *got.TotalAreaSqm != 50 {
		t.Fatalf("TotalAreaSqm after decrease = %v, want 50", got.TotalAreaSqm)
	}
}

func TestDeriveRetainsCountersOnMissingBlob(t *testing.T) {
	d := newDeriver("dev1")
	d.Derive(Snapshot{
		dpStatsBlob: statsBlob(20, func(b []byte) {
			b[18] = 0x18
			b[19] = 0x05
		}),
	})

	got := d.Derive(Snapshot{})
	if got.TotalCount == nil || *got.TotalCount != 5 {
		t.Fatalf("TotalCount with missing blob = %v, want 5", got.TotalCount)
	}
}

func TestBatteryFallback(t *testing.T) {
	if got := batteryPercent(Snapshot{dpBatteryAlt: float64(55)}); got == nil || *got != 55 {
		t.Fatalf("fallback battery = %v, want 55", got)
	}
	if got := batteryPercent(Snapshot{dpBattery: float64(70), dpBatteryAlt: float64(55)}); got == nil || *got != 70 {
		t.Fatalf("primary battery = %v, want 70", got)
	}
	if got := batteryPercent(Snapshot{dpBattery: float64(150)}); got != nil {
		t.Fatalf("out of range battery = %d, want nil", *got)
	}
	if got := batteryPercent(Snapshot{}); got != nil {
		t.Fatalf("missing battery = %d, want nil", *got)
	}
}

func TestRunningStatusFallsBackToRunningFlag(t *testing.T) {
	state, sub, status := runningStatus(Snapshot{dpRunning: true})
	if state != StateCleaning || sub != SubstatusUnknown || status != "Running" {
		t.Fatalf("running flag true = (%s, %s, %q)", state, sub, status)
	}
	state, _, status = runningStatus(Snapshot{dpRunning: false})
	if state != StateDocked || status != "Stopped" {
		t.Fatalf("running flag false = (%s, %q)", state, status)
	}
	state, sub, status = runningStatus(Snapshot{})
	if state != StateUnknown || sub != SubstatusUnknown || status != "Unknown" {
		t.Fatalf("empty snapshot = (%s, %s, %q)", state, sub, status)
	}
}

func TestChargingFromMode(t *testing.T) {
	for _, mode := range []string{"charge", "docked", "Charging"} {
		if !chargingFromMode(Snapshot{dpMode: mode}) {
			t.Errorf("mode %q should report charging", mode)
		}
	}
	if chargingFromMode(Snapshot{dpMode: "auto"}) {
		t.Errorf("mode auto should not report charging")
	}
	if chargingFromMode(Snapshot{}) {
		t.Errorf("missing mode should not report charging")
	}
}

func TestUniqueID(t *testing.T) {
	if got := uniqueID("abc123", "167"); got != "abc123_dps_167" {
		t.Fatalf("uniqueID = %q", got)
	}
}
