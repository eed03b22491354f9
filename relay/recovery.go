package relay

import (
	"fmt"
	"hash/crc32"
	"time"

	"github.com/alphapulse/relay/protocol"
)

// buildControlFrame assembles a raw control-range message: domain 0 (no
// validation range), the given TLV type/payload, and no sequence (control
// messages are not a replayable stream, so PayloadSize/Checksum are still
// computed but Sequence is always 0).
func buildControlFrame(tlvType uint8, payload []byte) ([]byte, error) {
	region, err := protocol.AppendTLV(nil, protocol.TLV{Type: tlvType, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("relay: build control frame: %w", err)
	}
	h := protocol.Header{
		Magic:       protocol.Magic,
		Version:     protocol.Version,
		RelayDomain: 0,
		PayloadSize: uint32(len(region)),
		TimestampNS: uint64(time.Now().UnixNano()),
		Checksum:    crc32.ChecksumIEEE(region),
	}
	out := make([]byte, protocol.HeaderSize+len(region))
	h.Encode(out[:protocol.HeaderSize])
	copy(out[protocol.HeaderSize:], region)
	return out, nil
}

// HandleRecoveryRequest fulfills req against the replay buffer for its
// source_type, falling back to the durable audit trail (when this relay
// instance has one — only Execution does) for a request that has already
// scrolled out of the in-memory ring's window. On success it returns the
// frames to retransmit. Only once neither source can serve the range does
// it return a RecoveryRequired control frame the caller should send back to
// the consumer instead, escalating to Snapshot (spec §4.3 Recovery
// Protocol).
func (s *Server) HandleRecoveryRequest(req protocol.RecoveryRequestPayload) (frames [][]byte, required []byte, err error) {
	escalate := func() ([][]byte, []byte, error) {
		required, err := buildControlFrame(protocol.TLVRecoveryRequired, protocol.EncodeRecoveryRequiredPayload(protocol.RecoveryRequiredPayload{
			SourceType:   req.SourceType,
			Start:        req.Start,
			End:          req.End,
			RequiredKind: protocol.RecoverySnapshot,
		}))
		return nil, required, err
	}

	rb := s.replayBufferFor(req.SourceType)
	if rb == nil || req.Kind == protocol.RecoverySnapshot {
		return escalate()
	}

	frames, rerr := rb.Retransmit(req.Start, req.End)
	if rerr != ErrOutOfWindow {
		return frames, nil, nil
	}

	if s.audit != nil {
		frames, aerr := s.audit.Range(req.SourceType, req.Start, req.End)
		if aerr == nil && len(frames) > 0 {
			return frames, nil, nil
		}
	}

	return escalate()
}
