package clock

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	c := &RealClock{}

	before := time.Now()
	actual := c.Now()
	after := time.Now()

	if actual.Before(before) || actual.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", actual, before, after)
	}
}

func TestFakeClock(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewFakeClock(fixed)

	if got := c.Now(); !got.Equal(fixed) {
		t.Errorf("FakeClock.Now() = %v, want %v", got, fixed)
	}

	c.Advance(2 * time.Hour)
	if got := c.Now(); !got.Equal(fixed.Add(2*time.Hour)) {
		t.Errorf("after Advance, Now() = %v, want %v", got, fixed.Add(2*time.Hour))
	}
}
