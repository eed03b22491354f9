package protocol

import (
	"bytes"
	"testing"
)

func TestAppendTLVShortForm(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, shortFormMax)
	buf, err := AppendTLV(nil, TLV{Type: TLVTrade, Payload: payload})
	if err != nil {
		t.Fatalf("AppendTLV: %v", err)
	}
	// type byte + 1-byte length + payload, no escape.
	if len(buf) != 1+1+len(payload) {
		t.Fatalf("unexpected encoded length %d", len(buf))
	}
	if buf[1] != shortFormMax {
		t.Fatalf("expected length byte %d, got %d", shortFormMax, buf[1])
	}
}

func TestAppendTLVExtendedForm(t *testing.T) {
	payload := bytes.Repeat([]byte{0xCD}, shortFormMax+1)
	buf, err := AppendTLV(nil, TLV{Type: TLVTrade, Payload: payload})
	if err != nil {
		t.Fatalf("AppendTLV: %v", err)
	}
	if buf[1] != escapeLength {
		t.Fatalf("expected escape byte 0xFF, got %#x", buf[1])
	}
	gotLen := int(buf[2]) | int(buf[3])<<8
	if gotLen != len(payload) {
		t.Fatalf("extended length field mismatch: got %d, want %d", gotLen, len(payload))
	}
	if len(buf) != 1+1+2+len(payload) {
		t.Fatalf("unexpected encoded length %d", len(buf))
	}
}

func TestAppendTLVZeroLength(t *testing.T) {
	buf, err := AppendTLV(nil, TLV{Type: TLVHeartbeatMD, Payload: nil})
	if err != nil {
		t.Fatalf("AppendTLV: %v", err)
	}
	if len(buf) != 2 {
		t.Fatalf("expected 2-byte encoding for zero-length tlv, got %d", len(buf))
	}
	if buf[1] != 0 {
		t.Fatalf("expected length byte 0, got %d", buf[1])
	}
}

func TestAppendTLVTooLargeRejected(t *testing.T) {
	payload := make([]byte, 0x10000)
	if _, err := AppendTLV(nil, TLV{Type: TLVTrade, Payload: payload}); err != ErrPayloadTooLarge {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestTLVIteratorRoundTripMultiple(t *testing.T) {
	want := []TLV{
		{Type: TLVTrade, Payload: []byte{1, 2, 3}},
		{Type: TLVQuote, Payload: bytes.Repeat([]byte{0x7F}, shortFormMax+5)},
		{Type: TLVHeartbeatMD, Payload: nil},
	}
	var buf []byte
	var err error
	for _, tlv := range want {
		buf, err = AppendTLV(buf, tlv)
		if err != nil {
			t.Fatalf("AppendTLV: %v", err)
		}
	}

	got, err := DecodeAllTLVs(buf)
	if err != nil {
		t.Fatalf("DecodeAllTLVs: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d tlvs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Type != want[i].Type {
			t.Fatalf("tlv %d type mismatch: got %d, want %d", i, got[i].Type, want[i].Type)
		}
		if !bytes.Equal(got[i].Payload, want[i].Payload) {
			t.Fatalf("tlv %d payload mismatch", i)
		}
	}
}

func TestTLVIteratorTruncatedLength(t *testing.T) {
	buf := []byte{TLVTrade}
	if _, err := DecodeAllTLVs(buf); err != ErrTLVLengthOverflow {
		t.Fatalf("expected ErrTLVLengthOverflow, got %v", err)
	}
}

func TestTLVIteratorTruncatedPayload(t *testing.T) {
	buf := []byte{TLVTrade, 10, 1, 2, 3}
	if _, err := DecodeAllTLVs(buf); err != ErrTLVLengthOverflow {
		t.Fatalf("expected ErrTLVLengthOverflow, got %v", err)
	}
}

func TestTLVIteratorTruncatedExtendedLength(t *testing.T) {
	buf := []byte{TLVTrade, escapeLength, 0x10}
	if _, err := DecodeAllTLVs(buf); err != ErrTLVLengthOverflow {
		t.Fatalf("expected ErrTLVLengthOverflow, got %v", err)
	}
}

func TestTLVIteratorZeroCopy(t *testing.T) {
	buf, err := AppendTLV(nil, TLV{Type: TLVTrade, Payload: []byte{9, 9, 9}})
	if err != nil {
		t.Fatalf("AppendTLV: %v", err)
	}
	tlvs, err := DecodeAllTLVs(buf)
	if err != nil {
		t.Fatalf("DecodeAllTLVs: %v", err)
	}
	buf[len(buf)-1] = 0xFF
	if tlvs[0].Payload[2] != 0xFF {
		t.Fatalf("expected decoded payload to alias the source buffer")
	}
}
