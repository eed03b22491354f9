package protocol

import "encoding/binary"

// Magic is the constant 4-byte prefix of every header; a mismatch is
// rejected outright (ErrInvalidMagic), same role as the teacher p2p
// envelope's magic check in node/p2p/envelope.go.
const Magic uint32 = 0xDEADBEEF

// Version is the schema version this build speaks. A header whose Version
// differs is rejected with ErrVersionMismatch.
const Version uint8 = 1

// HeaderSize is the fixed on-wire size of Header in bytes.
const HeaderSize = 32

// Header is the fixed 32-byte record prefixing every message. Field order
// and widths are wire-exact; see spec §3.
type Header struct {
	Magic       uint32
	RelayDomain Domain
	Version     uint8
	SourceType  uint8
	Flags       uint8
	PayloadSize uint32
	Sequence    uint64
	TimestampNS uint64
	Checksum    uint32
}

// Flag bits carried in Header.Flags.
const (
	FlagCompressed uint8 = 1 << 0
	FlagBulk       uint8 = 1 << 1
)

// Encode writes h's wire representation into out, which must be at least
// HeaderSize bytes. Layout is little-endian throughout, field by field,
// mirroring node/p2p/envelope.go's hand-rolled binary.LittleEndian.PutUintNN
// calls rather than reflection-based struct packing.
func (h Header) Encode(out []byte) {
	_ = out[HeaderSize-1]
	binary.LittleEndian.PutUint32(out[0:4], h.Magic)
	out[4] = uint8(h.RelayDomain)
	out[5] = h.Version
	out[6] = h.SourceType
	out[7] = h.Flags
	binary.LittleEndian.PutUint32(out[8:12], h.PayloadSize)
	binary.LittleEndian.PutUint64(out[12:20], h.Sequence)
	binary.LittleEndian.PutUint64(out[20:28], h.TimestampNS)
	binary.LittleEndian.PutUint32(out[28:32], h.Checksum)
}

// DecodeHeader parses a Header from the first HeaderSize bytes of buf. It
// performs no validation beyond length; callers use ValidateMagicVersion (or the
// stricter checks in Parse) to reject malformed headers.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncatedHeader
	}
	var h Header
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.RelayDomain = Domain(buf[4])
	h.Version = buf[5]
	h.SourceType = buf[6]
	h.Flags = buf[7]
	h.PayloadSize = binary.LittleEndian.Uint32(buf[8:12])
	h.Sequence = binary.LittleEndian.Uint64(buf[12:20])
	h.TimestampNS = binary.LittleEndian.Uint64(buf[20:28])
	h.Checksum = binary.LittleEndian.Uint32(buf[28:32])
	return h, nil
}

// ValidateMagicVersion checks the two cheapest, most common rejection
// causes before any further parsing work is done.
func (h Header) ValidateMagicVersion() error {
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version != Version {
		return ErrVersionMismatch
	}
	return nil
}
