package protocol

import (
	"encoding/binary"
	"fmt"
)

// RecoveryKind selects how a RecoveryRequest should be fulfilled.
type RecoveryKind uint8

const (
	RecoveryRetransmit RecoveryKind = 1
	RecoverySnapshot   RecoveryKind = 2
)

// SubscribePayload is the control TLV body a consumer sends to set its
// subscription set (overwrite semantics). An empty Topics means "all
// topics", per spec §6.
type SubscribePayload struct {
	Topics []string
}

// EncodeSubscribePayload encodes p as: compactsize count, then each topic
// as (compactsize length, bytes) — the same length-prefixed-string idiom
// the teacher uses for reject.go's Message/Reason fields.
func EncodeSubscribePayload(p SubscribePayload) []byte {
	out := encodeCompactSize(uint64(len(p.Topics)))
	for _, topic := range p.Topics {
		out = append(out, encodeCompactSize(uint64(len(topic)))...)
		out = append(out, topic...)
	}
	return out
}

// DecodeSubscribePayload is the inverse of EncodeSubscribePayload.
func DecodeSubscribePayload(b []byte) (SubscribePayload, error) {
	count, used, err := readCompactSize(b)
	if err != nil {
		return SubscribePayload{}, fmt.Errorf("protocol: subscribe: %w", err)
	}
	off := used
	topics := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		n, used, err := readCompactSize(b[off:])
		if err != nil {
			return SubscribePayload{}, fmt.Errorf("protocol: subscribe: topic %d: %w", i, err)
		}
		off += used
		if off+int(n) > len(b) {
			return SubscribePayload{}, fmt.Errorf("protocol: subscribe: topic %d: truncated", i)
		}
		topics = append(topics, string(b[off:off+int(n)]))
		off += int(n)
	}
	if off != len(b) {
		return SubscribePayload{}, fmt.Errorf("protocol: subscribe: trailing bytes")
	}
	return SubscribePayload{Topics: topics}, nil
}

// RecoveryRequestPayload is the control TLV body for requesting a
// retransmit or a snapshot over a sequence range, per spec §4.3/§6.
type RecoveryRequestPayload struct {
	ConsumerID string
	SourceType uint8
	Start      uint64
	End        uint64
	Kind       RecoveryKind
}

// EncodeRecoveryRequestPayload encodes r as: compactsize-prefixed
// consumer_id, source_type byte, start/end uint64 LE, kind byte.
func EncodeRecoveryRequestPayload(r RecoveryRequestPayload) []byte {
	out := encodeCompactSize(uint64(len(r.ConsumerID)))
	out = append(out, r.ConsumerID...)
	out = append(out, r.SourceType)
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], r.Start)
	binary.LittleEndian.PutUint64(buf[8:16], r.End)
	out = append(out, buf[:]...)
	out = append(out, byte(r.Kind))
	return out
}

// DecodeRecoveryRequestPayload is the inverse of EncodeRecoveryRequestPayload.
func DecodeRecoveryRequestPayload(b []byte) (RecoveryRequestPayload, error) {
	n, used, err := readCompactSize(b)
	if err != nil {
		return RecoveryRequestPayload{}, fmt.Errorf("protocol: recovery_request: %w", err)
	}
	off := used
	if off+int(n)+8+8+1+1 > len(b) {
		return RecoveryRequestPayload{}, fmt.Errorf("protocol: recovery_request: truncated")
	}
	consumerID := string(b[off : off+int(n)])
	off += int(n)
	sourceType := b[off]
	off++
	start := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	end := binary.LittleEndian.Uint64(b[off : off+8])
	off += 8
	kind := RecoveryKind(b[off])
	off++
	if off != len(b) {
		return RecoveryRequestPayload{}, fmt.Errorf("protocol: recovery_request: trailing bytes")
	}
	return RecoveryRequestPayload{
		ConsumerID: consumerID,
		SourceType: sourceType,
		Start:      start,
		End:        end,
		Kind:       kind,
	}, nil
}

// RecoveryRequiredPayload is the control message the relay emits toward a
// consumer when it decides a gap must be closed by snapshot rather than
// retransmit (spec §4.3 "(b) emits a RecoveryRequired control message").
type RecoveryRequiredPayload struct {
	SourceType   uint8
	Start        uint64
	End          uint64
	RequiredKind RecoveryKind
}

func EncodeRecoveryRequiredPayload(r RecoveryRequiredPayload) []byte {
	out := make([]byte, 1+8+8+1)
	out[0] = r.SourceType
	binary.LittleEndian.PutUint64(out[1:9], r.Start)
	binary.LittleEndian.PutUint64(out[9:17], r.End)
	out[17] = byte(r.RequiredKind)
	return out
}

func DecodeRecoveryRequiredPayload(b []byte) (RecoveryRequiredPayload, error) {
	if len(b) != 18 {
		return RecoveryRequiredPayload{}, fmt.Errorf("protocol: recovery_required: invalid length")
	}
	return RecoveryRequiredPayload{
		SourceType:   b[0],
		Start:        binary.LittleEndian.Uint64(b[1:9]),
		End:          binary.LittleEndian.Uint64(b[9:17]),
		RequiredKind: RecoveryKind(b[17]),
	}, nil
}
