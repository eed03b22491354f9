package protocol

// TLV is a single decoded extension: a type tag plus its payload. Payload
// is a view into the buffer it was parsed from — callers must not retain it
// past the lifetime of that buffer if the buffer is reused.
type TLV struct {
	Type    uint8
	Payload []byte
}

// escapeLength is the short-form length byte that signals "read the real
// length from the following uint16 little-endian field" (spec §3).
const escapeLength = 0xFF

// shortFormMax is the largest payload length encodable in the 1-byte short
// form without the escape prefix.
const shortFormMax = 0xFE

// EncodedLen returns the number of bytes t occupies on the wire: 1 type
// byte + 1 or 3 length bytes + len(t.Payload).
func (t TLV) EncodedLen() int {
	if len(t.Payload) <= shortFormMax {
		return 1 + 1 + len(t.Payload)
	}
	return 1 + 1 + 2 + len(t.Payload)
}

// AppendTLV appends t's wire encoding to buf and returns the extended
// slice. It fails ErrPayloadTooLarge only if the payload cannot be
// expressed even in extended form (more than a uint16 can address).
func AppendTLV(buf []byte, t TLV) ([]byte, error) {
	n := len(t.Payload)
	if n > 0xFFFF {
		return nil, ErrPayloadTooLarge
	}
	buf = append(buf, t.Type)
	if n <= shortFormMax {
		buf = append(buf, uint8(n))
	} else {
		buf = append(buf, escapeLength, uint8(n), uint8(n>>8))
	}
	buf = append(buf, t.Payload...)
	return buf, nil
}

// TLVIterator walks the TLV region of a parsed message without copying any
// payload bytes — each Next() call hands back a slice into the original
// buffer, per the "zero-copy parsing" design note.
type TLVIterator struct {
	buf []byte
	off int
	err error
}

// NewTLVIterator returns an iterator over region, which must be exactly the
// TLV bytes following the header (no trailing data).
func NewTLVIterator(region []byte) *TLVIterator {
	return &TLVIterator{buf: region}
}

// Err returns the first structural error encountered, if any. Call it after
// Next returns false to distinguish end-of-region from a truncated TLV.
func (it *TLVIterator) Err() error { return it.err }

// Next advances the iterator and reports whether a TLV was produced. On
// structural error it sets Err() and returns false.
func (it *TLVIterator) Next() (TLV, bool) {
	if it.err != nil || it.off >= len(it.buf) {
		return TLV{}, false
	}
	if it.off+2 > len(it.buf) {
		it.err = ErrTLVLengthOverflow
		return TLV{}, false
	}
	typ := it.buf[it.off]
	lenByte := it.buf[it.off+1]
	headerLen := 2
	var payloadLen int
	if lenByte == escapeLength {
		if it.off+4 > len(it.buf) {
			it.err = ErrTLVLengthOverflow
			return TLV{}, false
		}
		payloadLen = int(it.buf[it.off+2]) | int(it.buf[it.off+3])<<8
		headerLen = 4
	} else {
		payloadLen = int(lenByte)
	}
	start := it.off + headerLen
	end := start + payloadLen
	if end > len(it.buf) {
		it.err = ErrTLVLengthOverflow
		return TLV{}, false
	}
	it.off = end
	return TLV{Type: typ, Payload: it.buf[start:end]}, true
}

// DecodeAllTLVs drains an iterator into a slice, useful in tests and for
// callers that don't need streaming decode.
func DecodeAllTLVs(region []byte) ([]TLV, error) {
	it := NewTLVIterator(region)
	var out []TLV
	for {
		tlv, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, tlv)
	}
	if it.Err() != nil {
		return nil, it.Err()
	}
	return out, nil
}
