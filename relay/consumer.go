package relay

import "sync"

// ConsumerState is the per-connection state the relay maintains once a
// peer has sent a Subscribe control message (spec §3 "Consumer
// Registration"). A connection becomes a consumer independently of whether
// it is also acting as a producer.
type ConsumerState struct {
	ID     string
	mu     sync.RWMutex
	topics map[string]struct{}
	// ledgers is keyed by source_type; each connection's ledgers are only
	// ever touched by that connection's own fan-out delivery, so no lock is
	// needed for the ledger contents themselves (spec §5), only for the
	// map's structural growth.
	ledgers map[uint8]*GapLedger
}

func NewConsumerState(id string) *ConsumerState {
	return &ConsumerState{
		ID:      id,
		topics:  make(map[string]struct{}),
		ledgers: make(map[uint8]*GapLedger),
	}
}

// SetTopics overwrites the subscription set, per spec §6 "overwrite
// semantics". An empty slice means "all topics".
func (c *ConsumerState) SetTopics(topics []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = make(map[string]struct{}, len(topics))
	for _, t := range topics {
		c.topics[t] = struct{}{}
	}
}

// Subscribed reports whether topic is in the subscription set, or true for
// any topic if the set is empty ("all topics").
func (c *ConsumerState) Subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.topics) == 0 {
		return true
	}
	_, ok := c.topics[topic]
	return ok
}

// LedgerFor returns (creating if absent) the GapLedger for sourceType.
func (c *ConsumerState) LedgerFor(sourceType uint8) *GapLedger {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.ledgers[sourceType]
	if !ok {
		l = NewGapLedger()
		c.ledgers[sourceType] = l
	}
	return l
}
