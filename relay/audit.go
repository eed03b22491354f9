package relay

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// AuditTrail persists every Execution-domain message before fan-out (spec
// §4.3 "Audit trail: Full (every message persisted before fan-out)"), one
// bbolt bucket per source_type keyed by big-endian sequence number so range
// scans for retransmit come back in order. Only the Execution relay
// instance opens one of these; MarketData and Signal never touch disk on
// the hot path.
type AuditTrail struct {
	db *bolt.DB
}

// OpenAuditTrail opens (creating if absent) the bbolt database at path.
func OpenAuditTrail(path string) (*AuditTrail, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("relay: open audit trail: %w", err)
	}
	return &AuditTrail{db: db}, nil
}

func (a *AuditTrail) Close() error { return a.db.Close() }

func bucketName(sourceType uint8) []byte {
	return []byte(fmt.Sprintf("source_%d", sourceType))
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// Record persists frame under (sourceType, seq), creating the source's
// bucket on first use.
func (a *AuditTrail) Record(sourceType uint8, seq uint64, frame []byte) error {
	return a.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(sourceType))
		if err != nil {
			return fmt.Errorf("relay: audit bucket: %w", err)
		}
		return b.Put(seqKey(seq), frame)
	})
}

// Range returns every persisted frame for sourceType with sequence in
// [start, end], in ascending order.
func (a *AuditTrail) Range(sourceType uint8, start, end uint64) ([][]byte, error) {
	var out [][]byte
	err := a.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(sourceType))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		lo := seqKey(start)
		for k, v := c.Seek(lo); k != nil; k, v = c.Next() {
			seq := binary.BigEndian.Uint64(k)
			if seq > end {
				break
			}
			frame := make([]byte, len(v))
			copy(frame, v)
			out = append(out, frame)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("relay: audit range: %w", err)
	}
	return out, nil
}
