package instrument

import "golang.org/x/crypto/blake2b"

// HashProvider is the narrow hashing interface the registry uses to derive
// instrument IDs from canonical bytes. Its shape mirrors a crypto-provider
// split seen elsewhere in this codebase's lineage: one small interface, one
// default implementation, so a deployment that needs a different digest (a
// FIPS-validated build, say) can swap providers without touching registry
// logic.
type HashProvider interface {
	Hash(canonical []byte) [32]byte
}

// Blake2bProvider is the default HashProvider, using BLAKE2b-256.
type Blake2bProvider struct{}

func (Blake2bProvider) Hash(canonical []byte) [32]byte {
	return blake2b.Sum256(canonical)
}

// IDWidth selects how many leading bytes of the digest become an
// instrument's ID.
type IDWidth int

const (
	IDWidth64  IDWidth = 8
	IDWidth128 IDWidth = 16
)

// DeriveID hashes canonical with p and truncates to width bytes, returned as
// a big-endian uint128-in-two-uint64s pair (hi is zero for IDWidth64).
func DeriveID(p HashProvider, canonical []byte, width IDWidth) (hi, lo uint64) {
	digest := p.Hash(canonical)
	switch width {
	case IDWidth128:
		hi = beUint64(digest[0:8])
		lo = beUint64(digest[8:16])
	default:
		lo = beUint64(digest[0:8])
	}
	return hi, lo
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
