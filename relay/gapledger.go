package relay

import "sort"

// State is the per-(consumer, source_type) sequence-tracking state machine
// from spec §4.3 "State Machine".
type State uint8

const (
	StateFresh State = iota
	StateAligned
	StateGapped
	StateRecovering
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateAligned:
		return "aligned"
	case StateGapped:
		return "gapped"
	case StateRecovering:
		return "recovering"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Gap is a closed interval [Start, End] of missing sequence numbers.
type Gap struct {
	Start uint64
	End   uint64
}

// GapLedger tracks one (consumer, source_type) stream's delivery state: the
// sequence the relay expects next, the last one actually delivered, and any
// open gaps between them. It is owned exclusively by the fan-out goroutine
// for its consumer — spec §5 "no locking required" — so none of its methods
// take a lock.
type GapLedger struct {
	state            State
	expectedSequence uint64
	lastDelivered    uint64
	gaps             []Gap
}

// NewGapLedger returns a ledger in StateFresh.
func NewGapLedger() *GapLedger {
	return &GapLedger{state: StateFresh}
}

func (l *GapLedger) State() State            { return l.state }
func (l *GapLedger) ExpectedSequence() uint64 { return l.expectedSequence }
func (l *GapLedger) LastDelivered() uint64    { return l.lastDelivered }
func (l *GapLedger) Gaps() []Gap              { return append([]Gap(nil), l.gaps...) }
func (l *GapLedger) HasOpenGaps() bool        { return len(l.gaps) > 0 }

// Observe advances the ledger for a newly delivered sequence number,
// implementing the Fresh -> Aligned -> Gapped transitions of spec §4.3.
func (l *GapLedger) Observe(seq uint64) {
	switch l.state {
	case StateFresh:
		l.state = StateAligned
		l.expectedSequence = seq + 1
		l.lastDelivered = seq
		return
	case StateDisconnected:
		return
	}

	switch {
	case seq == l.expectedSequence:
		l.expectedSequence = seq + 1
		if l.state == StateRecovering && len(l.gaps) == 0 {
			l.state = StateAligned
		}
	case seq > l.expectedSequence:
		l.gaps = append(l.gaps, Gap{Start: l.expectedSequence, End: seq - 1})
		l.expectedSequence = seq + 1
		l.state = StateGapped
	default:
		// seq < expectedSequence: a regression. Closing/shrinking any gap
		// that contains it is handled below; it never moves expectedSequence
		// backward.
		l.closeWithin(seq)
	}
	l.lastDelivered = seq
}

// closeWithin shrinks or removes any gap interval containing seq, per
// "Gapped + seq ∈ some gap -> close/shrink that gap" (spec §4.3).
func (l *GapLedger) closeWithin(seq uint64) {
	out := l.gaps[:0]
	for _, g := range l.gaps {
		switch {
		case seq < g.Start || seq > g.End:
			out = append(out, g)
		case seq == g.Start && seq == g.End:
			// fully closed, drop it
		case seq == g.Start:
			out = append(out, Gap{Start: seq + 1, End: g.End})
		case seq == g.End:
			out = append(out, Gap{Start: g.Start, End: seq - 1})
		default:
			out = append(out, Gap{Start: g.Start, End: seq - 1}, Gap{Start: seq + 1, End: g.End})
		}
	}
	l.gaps = out
	if len(l.gaps) == 0 && (l.state == StateGapped || l.state == StateRecovering) {
		l.state = StateAligned
	}
}

// WidestGap returns the length (inclusive count of missing sequence
// numbers) of the widest open gap, or 0 if none.
func (l *GapLedger) WidestGap() uint64 {
	var widest uint64
	for _, g := range l.gaps {
		if n := g.End - g.Start + 1; n > widest {
			widest = n
		}
	}
	return widest
}

// BeginRecovery transitions Gapped -> Recovering, marking that a
// RecoveryRequest has been issued for this stream.
func (l *GapLedger) BeginRecovery() {
	if l.state == StateGapped {
		l.state = StateRecovering
	}
}

// ResolveSnapshot clears every gap up to and including snapshotSeq and
// returns to Aligned, per "Recovering + snapshot received covering all gaps
// -> Aligned (ledger cleared; expected := snapshot.seq+1)".
func (l *GapLedger) ResolveSnapshot(snapshotSeq uint64) {
	kept := l.gaps[:0]
	for _, g := range l.gaps {
		if g.End > snapshotSeq {
			start := g.Start
			if start <= snapshotSeq {
				start = snapshotSeq + 1
			}
			kept = append(kept, Gap{Start: start, End: g.End})
		}
	}
	l.gaps = kept
	if snapshotSeq+1 > l.expectedSequence {
		l.expectedSequence = snapshotSeq + 1
	}
	l.lastDelivered = snapshotSeq
	if len(l.gaps) == 0 {
		l.state = StateAligned
	}
}

// Disconnect moves the ledger to the Disconnected state. For the relay
// server this is terminal (the consumer's connection is gone and the
// ledger is discarded with it). Client-side reconnect logic that wants to
// keep tracking the same stream across a transport drop should call Resume
// once a new connection is established, rather than allocating a fresh
// ledger, so the outage itself still surfaces as a gap.
func (l *GapLedger) Disconnect() { l.state = StateDisconnected }

// Resume reactivates a Disconnected ledger after a reconnect, preserving
// expectedSequence/lastDelivered/gaps exactly as they stood at disconnect
// time. The next Observe call compares the first post-reconnect sequence
// against the preserved expectedSequence, so a gap spanning the outage is
// recorded instead of silently re-aligning from scratch. It is a no-op
// unless the ledger is currently Disconnected.
func (l *GapLedger) Resume() {
	if l.state != StateDisconnected {
		return
	}
	if len(l.gaps) > 0 {
		l.state = StateGapped
	} else {
		l.state = StateAligned
	}
}

// sortGaps orders a gap slice by Start. No mutation path calls it: Observe
// appends gaps in ascending order and closeWithin preserves that order.
func sortGaps(gaps []Gap) {
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].Start < gaps[j].Start })
}
