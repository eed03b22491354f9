package relay

import (
	"testing"
	"time"
)

func TestBanScoreDecay(t *testing.T) {
	var b BanScore
	t0 := time.Unix(1_700_000_000, 0)
	b.Add(t0, 60)
	if s := b.Score(t0); s != 60 {
		t.Fatalf("expected 60, got %d", s)
	}
	t1 := t0.Add(10 * time.Minute)
	if s := b.Score(t1); s != 50 {
		t.Fatalf("expected 50, got %d", s)
	}
	t2 := t1.Add(100 * time.Minute)
	if s := b.Score(t2); s != 0 {
		t.Fatalf("expected 0, got %d", s)
	}
}

func TestBanScoreShouldBanAndThrottle(t *testing.T) {
	var b BanScore
	t0 := time.Unix(1_700_000_000, 0)
	b.Add(t0, 50)
	if !b.ShouldThrottle(t0) {
		t.Fatalf("expected throttle at 50")
	}
	if b.ShouldBan(t0) {
		t.Fatalf("did not expect ban at 50")
	}
	b.Add(t0, 60)
	if !b.ShouldBan(t0) {
		t.Fatalf("expected ban at 110")
	}
}

func TestBanScoreClockGoesBackwards(t *testing.T) {
	var b BanScore
	t0 := time.Unix(1_700_000_000, 0)
	b.Add(t0, 40)
	past := t0.Add(-time.Hour)
	if s := b.Score(past); s != 40 {
		t.Fatalf("expected score unchanged on backwards clock, got %d", s)
	}
}
