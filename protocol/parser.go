package protocol

import "hash/crc32"

// Parsed is a zero-copy view of one decoded message: a Header plus an
// iterator over the TLV region, both backed by the original buffer.
type Parsed struct {
	Header Header
	TLVs   []byte // raw TLV region, still undecoded — use Iterator()
}

// Iterator returns a fresh TLVIterator over p's TLV region.
func (p Parsed) Iterator() *TLVIterator { return NewTLVIterator(p.TLVs) }

// ParseOptions controls parser behavior that varies per relay domain.
type ParseOptions struct {
	// VerifyChecksum recomputes CRC32 over the payload and compares it to
	// the header's checksum field. Disabled for MarketData per spec §4.3
	// (checksum validation is a performance tradeoff the relay owner
	// chooses per domain, not a protocol requirement).
	VerifyChecksum bool
	// ExpectDomain, if non-zero, rejects any header whose RelayDomain
	// differs (spec §4.3 step 2: "Verify relay_domain matches this relay's
	// domain; reject mismatch").
	ExpectDomain Domain
}

// Parse decodes buf into a Parsed header+TLV view without copying the TLV
// payload bytes, implementing every failure mode spec §4.1 names.
func Parse(buf []byte, opts ParseOptions) (Parsed, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Parsed{}, err
	}
	if err := h.ValidateMagicVersion(); err != nil {
		return Parsed{}, err
	}
	if opts.ExpectDomain != 0 && h.RelayDomain != opts.ExpectDomain {
		return Parsed{}, ErrDomainMismatch
	}
	if !h.RelayDomain.Valid() {
		return Parsed{}, ErrTLVOutOfDomain
	}

	remaining := buf[HeaderSize:]
	if uint64(len(remaining)) != uint64(h.PayloadSize) {
		return Parsed{}, ErrPayloadSizeMismatch
	}

	if opts.VerifyChecksum {
		if crc32.ChecksumIEEE(remaining) != h.Checksum {
			return Parsed{}, ErrChecksumMismatch
		}
	}

	// Scan TLV boundaries without decoding payloads (spec §4.3 step 4) and
	// reject out-of-domain types (step covers both MarketData/Signal/
	// Execution ranges and the control range, which Parse treats as
	// belonging to no domain and therefore always rejects, whether or not
	// ExpectDomain is set; control messages are accepted only through
	// ParseControl).
	it := NewTLVIterator(remaining)
	for {
		tlv, ok := it.Next()
		if !ok {
			break
		}
		if !h.RelayDomain.InRange(tlv.Type) {
			return Parsed{}, ErrTLVOutOfDomain
		}
	}
	if it.Err() != nil {
		return Parsed{}, it.Err()
	}

	return Parsed{Header: h, TLVs: remaining}, nil
}

// ParseControl decodes buf the same way Parse does but skips the
// domain-range check on TLV types, for relay control messages (Subscribe,
// RecoveryRequest) which live in a reserved range outside every domain.
func ParseControl(buf []byte) (Parsed, error) {
	h, err := DecodeHeader(buf)
	if err != nil {
		return Parsed{}, err
	}
	if err := h.ValidateMagicVersion(); err != nil {
		return Parsed{}, err
	}
	remaining := buf[HeaderSize:]
	if uint64(len(remaining)) != uint64(h.PayloadSize) {
		return Parsed{}, ErrPayloadSizeMismatch
	}
	if _, err := DecodeAllTLVs(remaining); err != nil {
		return Parsed{}, err
	}
	return Parsed{Header: h, TLVs: remaining}, nil
}
