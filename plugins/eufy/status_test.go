package eufy

import (
	"encoding/base64"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		mode      byte
		phase     byte
		wantState State
		wantSub   Substatus
	}{
		{0x01, 0x00, StateCleaning, SubstatusCleaning},
		{0x01, 0x02, StateCleaning, SubstatusSpotCleaning},
		{0x02, 0x00, StatePaused, SubstatusPaused},
		{0x03, 0x00, StateReturning, SubstatusReturning},
		{0x04, 0x00, StateDocked, SubstatusDockedIdle},
		{0x04, 0x01, StateDocked, SubstatusCharging},
		{0x04, 0x02, StateDocked, SubstatusFullyCharged},
		{0x04, 0x03, StateDocked, SubstatusDustCollect},
		{0x04, 0x06, StateDocked, SubstatusMopDrying},
		{0x05, 0x00, StateError, SubstatusErrorHalt},
	}
	for _, tt := range tests {
		state, sub := classifyStatus(encodeStatusBlob(tt.mode, tt.phase))
		if state != tt.wantState || sub != tt.wantSub {
			t.Errorf("classifyStatus(mode=%#x phase=%#x) = (%s, %s), want (%s, %s)",
				tt.mode, tt.phase, state, sub, tt.wantState, tt.wantSub)
		}
	}
}

func TestClassifyStatusUnknownPattern(t *testing.T) {
	state, sub := classifyStatus(encodeStatusBlob(0x09, 0x42))
	if state != StateUnknown || sub != SubstatusUnknown {
		t.Fatalf("unknown pattern = (%s, %s), want (unknown, unknown)", state, sub)
	}
}

func TestClassifyStatusMalformed(t *testing.T) {
	short := base64.StdEncoding.EncodeToString(make([]byte, statusBlobLen-1))
	for _, raw := range []string{"", "not base64!!!", short} {
		state, sub := classifyStatus(raw)
		if state != StateUnknown || sub != SubstatusUnknown {
			t.Errorf("classifyStatus(%q) = (%s, %s), want (unknown, unknown)", raw, state, sub)
		}
	}
}

func TestDescribeSubstatus(t *testing.T) {
	if got := describeSubstatus(SubstatusCharging); got != "Charging" {
		t.Fatalf("describeSubstatus(charging) = %q", got)
	}
	if got := describeSubstatus(Substatus("nonsense")); got != "Unknown" {
		t.Fatalf("describeSubstatus fallback = %q, want Unknown", got)
	}
	for sub := range substatusDescriptions {
		if describeSubstatus(sub) == "" {
			t.Errorf("substatus %s has empty description", sub)
		}
	}
}
