package eufy

import "testing"

func intPtr(v int) *int { return &v }

func TestMonotonicCounterDropsDecreases(t *testing.T) {
	c := newMonotonicCounter("dev1", "total_count")

	samples := []int{5, 9, 3, 12}
	want := []int{5, 9, 9, 12}
	for i, sample := range samples {
		got := c.Update(intPtr(sample))
		if got == nil || *got != want[i] {
			t.Fatalf("Update(%d) = %v, want %d", sample, got, want[i])
		}
	}
}

func TestMonotonicCounterNilPropagatesPrior(t *testing.T) {
	c := newMonotonicCounter("dev1", "total_area")

	if got := c.Update(nil); got != nil {
		t.Fatalf("Update(nil) before any sample = %d, want nil", *got)
	}
	c.Update(intPtr(42))
	got := c.Update(nil)
	if got == nil || *got != 42 {
		t.Fatalf("Update(nil) after 42 = %v, want 42", got)
	}
}

func TestMonotonicCounterEqualAccepted(t *testing.T) {
	c := newMonotonicCounter("dev1", "total_count")
	c.Update(intPtr(7))
	got := c.Update(intPtr(7))
	if got == nil || *got != 7 {
		t.Fatalf("Update(7) twice = %v, want 7", got)
	}
}

func TestMonotonicCounterCopiesSample(t *testing.T) {
	c := newMonotonicCounter("dev1", "total_count")
	sample := 10
	c.Update(&sample)
	sample = 99
	if got := c.Value(); got == nil || *got != 10 {
		t.Fatalf("Value after caller mutation = %v, want 10", got)
	}
}
