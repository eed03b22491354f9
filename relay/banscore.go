package relay

import "time"

// Ban score thresholds for a producer/consumer connection. Reaching
// BanThreshold disconnects the peer outright; ThrottleThreshold slows it
// down short of disconnecting. Score decays over time so a peer that stops
// misbehaving recovers standing instead of being permanently marked.
const (
	BanThreshold      = 100
	ThrottleThreshold = 50
	ThrottleDelay     = 500 * time.Millisecond

	// banScoreDecayPerMinute is the rate at which an idle connection's score
	// relaxes back toward zero.
	banScoreDecayPerMinute = 1
)

// Protocol-violation ban-score deltas, applied per failure mode by
// Server.ingest and Server.handleControl through Connection.BumpBan.
const (
	BanDeltaChecksumMismatch = 10
	BanDeltaTruncated        = 5
	BanDeltaOutOfDomain      = 20
	BanDeltaMalformedControl = 15
)

// BanScore is a decaying misbehavior counter kept per connection.
type BanScore struct {
	score       int
	lastUpdated time.Time
}

func (b *BanScore) Score(now time.Time) int {
	b.decayTo(now)
	return b.score
}

func (b *BanScore) Add(now time.Time, delta int) int {
	b.decayTo(now)
	b.score += delta
	if b.score < 0 {
		b.score = 0
	}
	return b.score
}

func (b *BanScore) ShouldBan(now time.Time) bool {
	return b.Score(now) >= BanThreshold
}

func (b *BanScore) ShouldThrottle(now time.Time) bool {
	return b.Score(now) >= ThrottleThreshold
}

func (b *BanScore) decayTo(now time.Time) {
	if b.lastUpdated.IsZero() {
		b.lastUpdated = now
		return
	}
	if now.Before(b.lastUpdated) {
		b.lastUpdated = now
		return
	}
	minutes := int(now.Sub(b.lastUpdated) / time.Minute)
	if minutes <= 0 {
		return
	}
	b.score -= minutes * banScoreDecayPerMinute
	if b.score < 0 {
		b.score = 0
	}
	b.lastUpdated = now
}
