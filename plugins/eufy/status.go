package eufy

import "encoding/base64"

// State is the coarse operating mode recovered from the DP 153 blob.
type State string

const (
	StateCleaning  State = "cleaning"
	StatePaused    State = "paused"
	StateReturning State = "returning"
	StateDocked    State = "docked"
	StateError     State = "error"
	StateUnknown   State = "unknown"
)

// Substatus refines a State for user-facing display.
type Substatus string

const (
	SubstatusCleaning      Substatus = "cleaning"
	SubstatusSpotCleaning  Substatus = "spot_cleaning"
	SubstatusPaused        Substatus = "paused"
	SubstatusReturning     Substatus = "returning"
	SubstatusCharging      Substatus = "charging"
	SubstatusFullyCharged  Substatus = "fully_charged"
	SubstatusDustCollect   Substatus = "dust_collecting"
	SubstatusMopWashingPre Substatus = "mop_washing_pre"
	SubstatusMopWashing    Substatus = "mop_washing"
	SubstatusMopDrying     Substatus = "mop_drying"
	SubstatusWaterRefill   Substatus = "water_refilling"
	SubstatusDockedIdle    Substatus = "docked_idle"
	SubstatusErrorHalt     Substatus = "error_halt"
	SubstatusUnknown       Substatus = "unknown"
)

// substatusDescriptions maps every substatus to its display string.
// Lookups through describeSubstatus fall back to "Unknown".
var substatusDescriptions = map[Substatus]string{
	SubstatusCleaning:      "Cleaning",
	SubstatusSpotCleaning:  "Spot Cleaning",
	SubstatusPaused:        "Paused",
	SubstatusReturning:     "Returning to Dock",
	SubstatusCharging:      "Charging",
	SubstatusFullyCharged:  "Fully Charged",
	SubstatusDustCollect:   "Collecting Dust",
	SubstatusMopWashingPre: "Washing Mop",
	SubstatusMopWashing:    "Washing Mop",
	SubstatusMopDrying:     "Drying Mop",
	SubstatusWaterRefill:   "Refilling Water",
	SubstatusDockedIdle:    "Docked",
	SubstatusErrorHalt:     "Error",
	SubstatusUnknown:       "Unknown",
}

func describeSubstatus(sub Substatus) string {
	if desc, ok := substatusDescriptions[sub]; ok {
		return desc
	}
	return "Unknown"
}

// statusKey is the discriminant pair inside the DP 153 blob: the mode
// byte at offset 4 and the phase byte at offset 6. The values are
// firmware-defined constants observed from S1 Pro output.
type statusKey struct {
	mode  byte
	phase byte
}

type statusEntry struct {
	state State
	sub   Substatus
}

var statusTable = map[statusKey]statusEntry{
	{0x01, 0x00}: {StateCleaning, SubstatusCleaning},
	{0x01, 0x01}: {StateCleaning, SubstatusCleaning},
	{0x01, 0x02}: {StateCleaning, SubstatusSpotCleaning},
	{0x02, 0x00}: {StatePaused, SubstatusPaused},
	{0x03, 0x00}: {StateReturning, SubstatusReturning},
	{0x04, 0x00}: {StateDocked, SubstatusDockedIdle},
	{0x04, 0x01}: {StateDocked, SubstatusCharging},
	{0x04, 0x02}: {StateDocked, SubstatusFullyCharged},
	{0x04, 0x03}: {StateDocked, SubstatusDustCollect},
	{0x04, 0x04}: {StateDocked, SubstatusMopWashingPre},
	{0x04, 0x05}: {StateDocked, SubstatusMopWashing},
	{0x04, 0x06}: {StateDocked, SubstatusMopDrying},
	{0x04, 0x07}: {StateDocked, SubstatusWaterRefill},
	{0x05, 0x00}: {StateError, SubstatusErrorHalt},
}

// statusBlobLen is the minimum DP 153 length that carries both
// discriminant bytes.
const statusBlobLen = 7

// classifyStatus maps the base64 DP 153 value to a primary state and
// substatus. Anything malformed, truncated, or simply not in the table
// classifies as (unknown, unknown); this function never fails.
func classifyStatus(raw string) (State, Substatus) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(data) < statusBlobLen {
		return StateUnknown, SubstatusUnknown
	}
	entry, ok := statusTable[statusKey{mode: data[4], phase: data[6]}]
	if !ok {
		return StateUnknown, SubstatusUnknown
	}
	return entry.state, entry.sub
}

// encodeStatusBlob builds a DP 153 blob that classifies to the given
// discriminant pair. Used by diagnostics and tests.
func encodeStatusBlob(mode, phase byte) string {
	data := make([]byte, statusBlobLen)
	data[4] = mode
	data[6] = phase
	return base64.StdEncoding.EncodeToString(data)
}
