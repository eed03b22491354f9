package consumer

import "github.com/alphapulse/relay/protocol"

// Event is one decoded domain message delivered to a Session's consumer,
// the TLV region left undecoded (zero-copy) for the caller to iterate with
// Iterator(), the same TLVIterator relay.Server uses on ingestion.
type Event struct {
	Header protocol.Header
	TLVs   []byte
}

// Iterator returns a fresh iterator over the event's TLV region.
func (e Event) Iterator() *protocol.TLVIterator { return protocol.NewTLVIterator(e.TLVs) }

// Gap reports a detected hole in a source_type's sequence stream, surfaced
// to the caller alongside ordinary Events so application code can decide
// whether to wait for recovery or act on possibly-incomplete data.
type Gap struct {
	SourceType uint8
	Start      uint64
	End        uint64
}

// SequenceReset is surfaced when a source_type's sequence regresses,
// meaning its producer restarted upstream of the relay (spec §4.4): all
// prior state for that source_type is stale and a fresh snapshot has been
// requested.
type SequenceReset struct {
	SourceType uint8
}
