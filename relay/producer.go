package relay

import "sync"

// ProducerState tracks one (source_type) producer stream's sequence
// progress on the ingestion side, independent of any consumer's GapLedger.
// It exists only to detect and warn on non-monotonic producer sequences
// (spec §4.3 step 6); it is not authoritative for consumer gap recovery.
type ProducerState struct {
	mu      sync.Mutex
	lastSeq uint64
	seen    bool
}

// Observe records seq and reports whether it was monotonic (strictly
// greater than the last observed sequence, or the first sequence seen).
func (p *ProducerState) Observe(seq uint64) (monotonic bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen {
		p.seen = true
		p.lastSeq = seq
		return true
	}
	monotonic = seq > p.lastSeq
	if monotonic {
		p.lastSeq = seq
	}
	return monotonic
}

// ProducerTable hands out one ProducerState per source_type, fresh on every
// (re)registration: this is the chosen resolution of spec §9's open
// question on cross-reconnect sequence handling (producer restart means a
// new counter, which surfaces to consumers as a sequence reset).
type ProducerTable struct {
	mu    sync.Mutex
	table map[uint8]*ProducerState
}

func NewProducerTable() *ProducerTable {
	return &ProducerTable{table: make(map[uint8]*ProducerState)}
}

// Register resets (or creates) the ProducerState for sourceType, returning
// it for the connection to use for the remainder of its lifetime.
func (t *ProducerTable) Register(sourceType uint8) *ProducerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &ProducerState{}
	t.table[sourceType] = s
	return s
}

// Get returns the current ProducerState for sourceType, or nil if no
// producer has registered for it yet.
func (t *ProducerTable) Get(sourceType uint8) *ProducerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.table[sourceType]
}
