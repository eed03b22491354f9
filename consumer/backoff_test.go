package consumer

import "testing"

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := &Backoff{Initial: 10 * 1_000_000, Max: 100 * 1_000_000} // 10ms / 100ms in ns-scale Durations
	var last int64
	for i := 0; i < 10; i++ {
		d := b.Next()
		if d < 0 {
			t.Fatalf("negative delay at attempt %d: %v", i, d)
		}
		if int64(d) > int64(b.Max) {
			t.Fatalf("delay %v exceeds cap %v at attempt %d", d, b.Max, i)
		}
		// Attempts 1-4 (20ms, 40ms, 80ms, then the 100ms cap) each exceed the
		// previous attempt even with ±10% jitter.
		if i >= 1 && i <= 4 && int64(d) <= last {
			t.Fatalf("delay %v at attempt %d did not grow past %v", d, i, last)
		}
		last = int64(d)
	}
}

func TestBackoffResetRestartsFromInitial(t *testing.T) {
	b := DefaultBackoff()
	for i := 0; i < 5; i++ {
		b.Next()
	}
	b.Reset()
	d := b.Next()
	if d > b.Initial*2 {
		t.Fatalf("expected first delay after Reset to be near Initial, got %v", d)
	}
}
