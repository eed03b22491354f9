package relay

import "github.com/alphapulse/relay/protocol"

// BackpressurePolicy selects what the fan-out path does when a consumer's
// outbound queue would exceed its high-water mark (spec §4.3 Fan-out Path).
type BackpressurePolicy uint8

const (
	// DropOldest evicts the oldest queued message to make room for the
	// newest (newest-wins); the consumer resyncs via snapshot. Used for
	// MarketData, where recent data is worth more than old data.
	DropOldest BackpressurePolicy = iota + 1
	// BlockProducer blocks ingestion of the offending producer instead of
	// dropping anything. Used for Signal and Execution, where every message
	// matters.
	BlockProducer
)

// Policy is one domain's validation and recovery configuration (spec §4.3
// "Per-Domain Policy" table). Policy is data, not code: a single relay
// implementation reads its behavior from this struct rather than branching
// on domain throughout the ingestion and fan-out paths.
type Policy struct {
	Domain protocol.Domain

	// ChecksumEnabled recomputes and verifies CRC32 on every ingested
	// message. Disabled for MarketData as a throughput tradeoff.
	ChecksumEnabled bool
	// AuditEnabled persists every message (pre-fan-out) to the audit trail.
	// Only Execution enables this.
	AuditEnabled bool

	// GapThreshold: a gap narrower than this is eligible for retransmit;
	// wider gaps default straight to snapshot.
	GapThreshold uint64
	// DefaultRecoveryKind is the configured recovery kind for gaps within
	// GapThreshold. The relay takes no action of its own on such gaps, so
	// nothing in this package reads it; gaps wider than GapThreshold always
	// get a Snapshot RecoveryRequired.
	DefaultRecoveryKind protocol.RecoveryKind

	Backpressure BackpressurePolicy
	HighWater    int

	// ReplayBufferMessages bounds the per-source_type replay ring by count.
	ReplayBufferMessages int
	// ReplayBufferMaxAgeSeconds bounds it by age; eviction is by whichever
	// limit is hit first.
	ReplayBufferMaxAgeSeconds int

	// SlowConsumerTimeoutSeconds: a consumer whose queue stays at high
	// water for longer than this is forcibly disconnected.
	SlowConsumerTimeoutSeconds int

	// DirectBroadcast bypasses topic-set filtering and writes every message
	// to every connected consumer. Spec §9's flagged Open Question is
	// resolved here: topic filtering is the default everywhere, and this
	// escape hatch opts out of it for maximum throughput. DefaultPolicies
	// leaves it off for every domain; nothing restricts it to MarketData,
	// and config.RelayConfig has no setting for it.
	DirectBroadcast bool
}

// DefaultPolicies returns the three canned per-domain policy rows from
// spec §4.3's table, keyed by domain.
func DefaultPolicies() map[protocol.Domain]Policy {
	return map[protocol.Domain]Policy{
		protocol.DomainMarketData: {
			Domain:                     protocol.DomainMarketData,
			ChecksumEnabled:            false,
			AuditEnabled:               false,
			GapThreshold:               50,
			DefaultRecoveryKind:        protocol.RecoverySnapshot,
			Backpressure:               DropOldest,
			HighWater:                  4096,
			ReplayBufferMessages:       2048,
			ReplayBufferMaxAgeSeconds:  5,
			SlowConsumerTimeoutSeconds: 10,
			DirectBroadcast:            false,
		},
		protocol.DomainSignal: {
			Domain:                     protocol.DomainSignal,
			ChecksumEnabled:            true,
			AuditEnabled:               false,
			GapThreshold:               100,
			DefaultRecoveryKind:        protocol.RecoveryRetransmit,
			Backpressure:               BlockProducer,
			HighWater:                  8192,
			ReplayBufferMessages:       16384,
			ReplayBufferMaxAgeSeconds:  60,
			SlowConsumerTimeoutSeconds: 30,
		},
		protocol.DomainExecution: {
			Domain:                     protocol.DomainExecution,
			ChecksumEnabled:            true,
			AuditEnabled:               true,
			GapThreshold:               10,
			DefaultRecoveryKind:        protocol.RecoveryRetransmit,
			Backpressure:               BlockProducer,
			HighWater:                  16384,
			ReplayBufferMessages:       100000,
			ReplayBufferMaxAgeSeconds:  3600,
			SlowConsumerTimeoutSeconds: 60,
		},
	}
}
