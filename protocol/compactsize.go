package protocol

import (
	"encoding/binary"
	"fmt"
)

// Variable-length count/length encoding used inside control-TLV payloads
// (Subscribe's topic count and topic lengths, RecoveryRequest's consumer_id
// length; its start/end sequences are fixed uint64 fields): a classic
// CompactSize varint, the same shape the teacher uses for its p2p inv/
// reject payloads (node/p2p/inv.go, node/p2p/compactsize.go), reimplemented
// here directly since the message formats themselves (topics, sequence
// ranges) are AlphaPulse-specific rather than blockchain inventory vectors.
//
//	value < 0xFD            -> 1 byte
//	0xFD <= value <= 0xFFFF  -> 0xFD + uint16 LE
//	0x10000 <= value <= 2^32-1 -> 0xFE + uint32 LE
//	otherwise                -> 0xFF + uint64 LE
func encodeCompactSize(n uint64) []byte {
	switch {
	case n < 0xFD:
		return []byte{byte(n)}
	case n <= 0xFFFF:
		out := make([]byte, 3)
		out[0] = 0xFD
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
		return out
	case n <= 0xFFFFFFFF:
		out := make([]byte, 5)
		out[0] = 0xFE
		binary.LittleEndian.PutUint32(out[1:], uint32(n))
		return out
	default:
		out := make([]byte, 9)
		out[0] = 0xFF
		binary.LittleEndian.PutUint64(out[1:], n)
		return out
	}
}

// readCompactSize decodes a CompactSize varint from the front of b and
// returns the value plus the number of bytes consumed.
func readCompactSize(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("protocol: compactsize: empty input")
	}
	switch b[0] {
	case 0xFD:
		if len(b) < 3 {
			return 0, 0, fmt.Errorf("protocol: compactsize: truncated uint16 form")
		}
		return uint64(binary.LittleEndian.Uint16(b[1:3])), 3, nil
	case 0xFE:
		if len(b) < 5 {
			return 0, 0, fmt.Errorf("protocol: compactsize: truncated uint32 form")
		}
		return uint64(binary.LittleEndian.Uint32(b[1:5])), 5, nil
	case 0xFF:
		if len(b) < 9 {
			return 0, 0, fmt.Errorf("protocol: compactsize: truncated uint64 form")
		}
		return binary.LittleEndian.Uint64(b[1:9]), 9, nil
	default:
		return uint64(b[0]), 1, nil
	}
}
