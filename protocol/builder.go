package protocol

import (
	"hash/crc32"
	"sync/atomic"
	"time"
)

// SequenceCounter is a monotonic, atomically-incremented sequence source for
// one (source_type, relay_domain) producer stream, per spec §3 "Producer
// Registration". It starts at 1 on first Next() call. A producer creates a
// fresh counter each time it connects (collector.DialProducer does), and the
// relay likewise starts a fresh ProducerState per connection (see
// relay.ProducerTable) — this repo's chosen resolution of the "sequence
// across reconnects" open question (spec §9): producer restart means a new
// counter from zero.
type SequenceCounter struct {
	n uint64
}

// Next returns the next sequence number, starting at 1.
func (c *SequenceCounter) Next() uint64 {
	return atomic.AddUint64(&c.n, 1)
}

// Peek returns the most recently issued sequence number without advancing,
// or 0 if Next has never been called.
func (c *SequenceCounter) Peek() uint64 {
	return atomic.LoadUint64(&c.n)
}

// Builder assembles a single wire message: a valid 32-byte header followed
// by the concatenated TLVs added via Add, in order. One Builder is used per
// message; the SequenceCounter it holds a reference to is shared and
// survives across many Builder instances for the same producer stream.
type Builder struct {
	domain     Domain
	sourceType uint8
	seq        *SequenceCounter
	now        func() time.Time

	tlvRegion []byte
	err       error
}

// NewBuilder starts assembling a message for domain/sourceType, drawing the
// next sequence number from seq. now defaults to time.Now if nil (tests may
// inject a fixed clock).
func NewBuilder(domain Domain, sourceType uint8, seq *SequenceCounter, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{domain: domain, sourceType: sourceType, seq: seq, now: now}
}

// Add appends one TLV extension. It fails (sticky — recorded and returned
// by Build) with ErrTLVOutOfDomain if tlvType lies outside the builder's
// domain range, and ErrPayloadTooLarge if the accumulated TLV region would
// exceed what a uint32 payload_size can address.
func (b *Builder) Add(tlvType uint8, payload []byte) *Builder {
	if b.err != nil {
		return b
	}
	if !b.domain.InRange(tlvType) {
		b.err = ErrTLVOutOfDomain
		return b
	}
	region, err := AppendTLV(b.tlvRegion, TLV{Type: tlvType, Payload: payload})
	if err != nil {
		b.err = err
		return b
	}
	if uint64(len(region)) > uint64(^uint32(0)) {
		b.err = ErrPayloadTooLarge
		return b
	}
	b.tlvRegion = region
	return b
}

// Build finalizes the message: computes payload_size and the CRC32
// checksum over the TLV region, samples the sequence number and wall
// clock, and returns a single contiguous buffer (header || TLVs).
//
// The checksum is CRC32 (hash/crc32), not the pluggable instrument hash
// provider: spec §3 names CRC32 literally for the wire checksum, so this is
// a protocol constant, not a swappable design decision.
func (b *Builder) Build() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	h := Header{
		Magic:       Magic,
		RelayDomain: b.domain,
		Version:     Version,
		SourceType:  b.sourceType,
		PayloadSize: uint32(len(b.tlvRegion)),
		Sequence:    b.seq.Next(),
		TimestampNS: uint64(b.now().UnixNano()),
		Checksum:    crc32.ChecksumIEEE(b.tlvRegion),
	}
	out := make([]byte, HeaderSize+len(b.tlvRegion))
	h.Encode(out[:HeaderSize])
	copy(out[HeaderSize:], b.tlvRegion)
	return out, nil
}
