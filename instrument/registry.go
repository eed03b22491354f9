package instrument

import (
	"bytes"
	"fmt"
	"sync"
)

// ErrHashCollision is returned by Register when canonical's derived ID
// already names a different instrument. This should essentially never
// happen at IDWidth128 and is vanishingly unlikely even at IDWidth64; when
// it does, Register refuses to silently alias the two instruments under one
// ID and returns this error instead so the caller can widen IDWidth or
// escalate.
type ErrHashCollision struct {
	ID       ID
	Existing Attrs
	New      Attrs
}

func (e *ErrHashCollision) Error() string {
	return fmt.Sprintf("instrument: hash collision on id %s between %+v and %+v", e.ID, e.Existing, e.New)
}

// secondaryKey identifies one of a registry's secondary lookup indices.
type secondaryKey struct {
	index string // "ticker", "contract", "isin"
	value string
}

// Registry is a concurrent, content-addressed instrument directory. Lookup
// goes through a sync.Map for lock-free hot-path access; the secondary
// lookups (LookupByTicker, LookupByISIN, LookupByContract) take mu's read
// lock. Registration serializes through mu to keep the secondary indices
// and the hash-collision check consistent, the same "lock-free reads,
// serialized writes" split the teacher's peer table uses.
type Registry struct {
	provider HashProvider
	width    IDWidth
	allow    AllowList

	forward sync.Map // ID -> *entry

	mu        sync.RWMutex
	secondary map[secondaryKey]ID
}

type entry struct {
	attrs     Attrs
	canonical []byte
	verified  bool
}

// AllowList reports whether a token contract address is on a verified list.
// A nil AllowList treats every address as unverified.
type AllowList interface {
	Verified(chainID uint64, address string) bool
}

// NewRegistry constructs a Registry. provider and width together determine
// ID derivation; allow may be nil.
func NewRegistry(provider HashProvider, width IDWidth, allow AllowList) *Registry {
	return &Registry{
		provider:  provider,
		width:     width,
		allow:     allow,
		secondary: make(map[secondaryKey]ID),
	}
}

// Register derives canonical's ID and stores attrs under it. If the ID is
// already registered with the same canonical encoding, Register is
// idempotent and returns the existing ID — this holds even when attrs
// differs from the stored value only in ways CanonicalBytes normalizes away
// (e.g. checksum-case variants of a token address), since those encode to
// the same bytes and therefore the same ID. If the ID is already registered
// with a different canonical encoding, it returns ErrHashCollision rather
// than overwriting.
func (r *Registry) Register(attrs Attrs) (ID, bool, error) {
	canonical, err := CanonicalBytes(attrs)
	if err != nil {
		return ID{}, false, err
	}
	hi, lo := DeriveID(r.provider, canonical, r.width)
	id := ID{Hi: hi, Lo: lo}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.forward.Load(id); ok {
		e := existing.(*entry)
		if !bytes.Equal(e.canonical, canonical) {
			return id, false, &ErrHashCollision{ID: id, Existing: e.attrs, New: attrs}
		}
		return id, false, nil
	}

	verified := attrs.Kind == KindToken && r.allow != nil && r.allow.Verified(attrs.Token.ChainID, attrs.Token.Address)
	r.forward.Store(id, &entry{attrs: attrs, canonical: canonical, verified: verified})
	r.indexSecondary(id, attrs)
	return id, true, nil
}

// indexSecondary must be called with mu held.
func (r *Registry) indexSecondary(id ID, attrs Attrs) {
	switch attrs.Kind {
	case KindStock:
		if attrs.Stock.Ticker != "" {
			r.secondary[secondaryKey{"ticker", attrs.Stock.MIC + ":" + attrs.Stock.Ticker}] = id
		}
		if attrs.Stock.ISIN != "" {
			r.secondary[secondaryKey{"isin", attrs.Stock.ISIN}] = id
		}
	case KindToken:
		r.secondary[secondaryKey{"contract", fmt.Sprintf("%d:%s", attrs.Token.ChainID, attrs.Token.Address)}] = id
	}
}

// Lookup returns the Attrs registered under id, and whether the registration
// was flagged Verified (only meaningful for KindToken).
func (r *Registry) Lookup(id ID) (Attrs, bool, bool) {
	v, ok := r.forward.Load(id)
	if !ok {
		return Attrs{}, false, false
	}
	e := v.(*entry)
	return e.attrs, e.verified, true
}

// LookupByTicker resolves a (MIC, ticker) pair to an ID.
func (r *Registry) LookupByTicker(mic, ticker string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.secondary[secondaryKey{"ticker", mic + ":" + ticker}]
	return id, ok
}

// LookupByISIN resolves an ISIN to an ID.
func (r *Registry) LookupByISIN(isin string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.secondary[secondaryKey{"isin", isin}]
	return id, ok
}

// LookupByContract resolves an on-chain (chainID, address) pair to an ID.
func (r *Registry) LookupByContract(chainID uint64, address string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.secondary[secondaryKey{"contract", fmt.Sprintf("%d:%s", chainID, address)}]
	return id, ok
}
