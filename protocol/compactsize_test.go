package protocol

import "testing"

func TestCompactSizeRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0xFC, 0xFD, 0xFFFF, 0x10000, 0xFFFFFFFF, 0x100000000, ^uint64(0)}
	for _, n := range cases {
		enc := encodeCompactSize(n)
		got, used, err := readCompactSize(enc)
		if err != nil {
			t.Fatalf("readCompactSize(%d): %v", n, err)
		}
		if got != n {
			t.Fatalf("round trip mismatch for %d: got %d", n, got)
		}
		if used != len(enc) {
			t.Fatalf("used %d bytes, expected %d", used, len(enc))
		}
	}
}

func TestCompactSizeFormBoundaries(t *testing.T) {
	if len(encodeCompactSize(0xFC)) != 1 {
		t.Fatalf("expected 1-byte form at 0xFC")
	}
	if len(encodeCompactSize(0xFD)) != 3 {
		t.Fatalf("expected 3-byte form at 0xFD")
	}
	if len(encodeCompactSize(0xFFFF)) != 3 {
		t.Fatalf("expected 3-byte form at 0xFFFF")
	}
	if len(encodeCompactSize(0x10000)) != 5 {
		t.Fatalf("expected 5-byte form at 0x10000")
	}
}

func TestReadCompactSizeRejectsTruncated(t *testing.T) {
	if _, _, err := readCompactSize(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, _, err := readCompactSize([]byte{0xFD, 1}); err == nil {
		t.Fatalf("expected error for truncated uint16 form")
	}
	if _, _, err := readCompactSize([]byte{0xFE, 1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated uint32 form")
	}
	if _, _, err := readCompactSize([]byte{0xFF, 1, 2, 3, 4, 5, 6, 7}); err == nil {
		t.Fatalf("expected error for truncated uint64 form")
	}
}
