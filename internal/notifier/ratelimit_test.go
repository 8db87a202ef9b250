package notifier

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestRateLimiterBasic(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 3,
		Window:       time.Second,
		Enabled:      true,
	})

	for i := 0; i < 3; i++ {
		if !rl.Allow() {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if rl.Allow() {
		t.Error("4th request should be denied")
	}

	if dropped := rl.Stats().Dropped; dropped != 1 {
		t.Errorf("dropped = %d, want 1", dropped)
	}
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	clock := newFakeClock()
	rl := newRateLimiter(RateLimitConfig{
		MaxPerWindow: 3,
		Window:       time.Minute,
		Enabled:      true,
	}, clock.Now)

	rl.Allow()
	rl.Allow()

	clock.Advance(30 * time.Second)
	if !rl.Allow() {
		t.Fatal("3rd request should be allowed")
	}
	if rl.Allow() {
		t.Fatal("4th request should be denied")
	}

	// The first two age out, the third is still inside the window.
	clock.Advance(31 * time.Second)
	if !rl.Allow() {
		t.Error("request after the oldest aged out should be allowed")
	}
	if !rl.Allow() {
		t.Error("second slot should also have freed up")
	}
	if rl.Allow() {
		t.Error("window is full again")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 1,
		Window:       time.Second,
		Enabled:      false,
	})

	for i := 0; i < 100; i++ {
		if !rl.Allow() {
			t.Errorf("request %d should be allowed when disabled", i+1)
		}
	}

	if dropped := rl.Stats().Dropped; dropped != 0 {
		t.Errorf("dropped = %d, want 0 when disabled", dropped)
	}
}

func TestRateLimiterRelease(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 1,
		Window:       time.Minute,
		Enabled:      true,
	})

	rl.Allow()
	rl.Release()
	if !rl.Allow() {
		t.Error("released token should be reusable")
	}

	rl.Release()
	rl.Release() // nothing left to refund
	if got := rl.Stats().CurrentCount; got != 0 {
		t.Errorf("current count = %d, want 0", got)
	}
}

func TestRateLimiterStats(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		MaxPerWindow: 5,
		Window:       time.Minute,
		Enabled:      true,
	})

	rl.Allow()
	rl.Allow()
	rl.Allow()

	stats := rl.Stats()
	if stats.CurrentCount != 3 {
		t.Errorf("current count = %d, want 3", stats.CurrentCount)
	}
	if stats.MaxPerWindow != 5 {
		t.Errorf("max per window = %d, want 5", stats.MaxPerWindow)
	}
	if stats.Window != time.Minute {
		t.Errorf("window = %v, want 1m", stats.Window)
	}
	if !stats.Enabled {
		t.Error("should be enabled")
	}
	if stats.Dropped != 0 {
		t.Errorf("dropped = %d, want 0", stats.Dropped)
	}
}

func TestNewRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true})

	stats := rl.Stats()
	if stats.MaxPerWindow != 10 {
		t.Errorf("should default to 10, got %d", stats.MaxPerWindow)
	}
	if stats.Window != time.Minute {
		t.Errorf("should default to 1m, got %v", stats.Window)
	}

	def := DefaultRateLimitConfig()
	if def.MaxPerWindow != 10 || def.Window != time.Minute || !def.Enabled {
		t.Errorf("DefaultRateLimitConfig() = %+v", def)
	}
}
