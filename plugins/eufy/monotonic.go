package eufy

import "github.com/rs/zerolog/log"

// monotonicCounter filters a cumulative counter that must never appear
// to regress. The device occasionally reports a transient low reading
// (typically right after a new run starts) before the cumulative field
// catches up; those dips are discarded rather than exposed.
//
// One instance per metric per device, mutated only by that device's
// poll goroutine. Recreated when the device entry is rebuilt, which is
// the only way it resets.
type monotonicCounter struct {
	deviceID  string
	metric    string
	lastValid *int
}

func newMonotonicCounter(deviceID, metric string) *monotonicCounter {
	return &monotonicCounter{deviceID: deviceID, metric: metric}
}

// Update feeds one parsed sample. A nil sample (this poll could not be
// parsed) propagates the prior reading. A sample below the last accepted
// value is dropped with a debug log only; callers never see the
// rejection.
func (c *monotonicCounter) Update(sample *int) *int {
	if sample == nil {
		return c.lastValid
	}
	if c.lastValid == nil || *sample >= *c.lastValid {
		v := *sample
		c.lastValid = &v
		return c.lastValid
	}
	log.Debug().
		Str("device_id", c.deviceID).
		Str("metric", c.metric).
		Int("sample", *sample).
		Int("last_valid", *c.lastValid).
		Msg("eufy: ignoring decreased cumulative value")
	return c.lastValid
}

// Value returns the last accepted reading without consuming a sample.
func (c *monotonicCounter) Value() *int {
	return c.lastValid
}
