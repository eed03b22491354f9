package consumer

import (
	"math/rand"
	"time"
)

// Backoff computes reconnect delays: exponential growth from an initial
// delay, capped, with up to 20% jitter so many consumers reconnecting to
// the same relay after an outage don't all retry in lockstep.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	attempt int
}

// DefaultBackoff matches the teacher's handshake timeout order of
// magnitude (node/p2p/handshake.go's HandshakeTimeout = 10s) scaled down
// for a starting retry delay, capped at 30s.
func DefaultBackoff() *Backoff {
	return &Backoff{Initial: 250 * time.Millisecond, Max: 30 * time.Second}
}

// Next returns the delay before the next reconnect attempt and advances
// the attempt counter.
func (b *Backoff) Next() time.Duration {
	shift := b.attempt
	if shift > 20 { // guard against overflowing the Duration shift
		shift = 20
	}
	delay := b.Initial << shift
	if delay <= 0 || delay > b.Max {
		delay = b.Max
	}
	b.attempt++

	jitterRange := delay / 5
	if jitterRange <= 0 {
		return delay
	}
	jitter := time.Duration(rand.Int63n(int64(jitterRange)))
	d := delay - jitterRange/2 + jitter
	if d > b.Max {
		d = b.Max
	}
	return d
}

// Reset clears the attempt counter after a successful connection.
func (b *Backoff) Reset() { b.attempt = 0 }
