// Package consumer implements the client side of a relay subscription: a
// Session dials a relay domain socket, subscribes to a topic set, and
// decodes the resulting stream into Events while tracking per-source_type
// sequence continuity the same way the relay does on its fan-out path.
package consumer

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/alphapulse/relay/protocol"
	"github.com/alphapulse/relay/relay"
	"github.com/alphapulse/relay/transport"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Options configures a Session.
type Options struct {
	Network string // "unix" (default) or "tcp"
	Address string
	Topics  []string // empty = all topics
	ID      string   // consumer id carried on RecoveryRequests

	Log *logrus.Entry
}

// Session manages one relay connection: dial, subscribe, decode, and
// transparent reconnect with resubscribe on drop.
type Session struct {
	opts Options
	log  *logrus.Entry

	mu      sync.Mutex
	conn    net.Conn
	writer  *bufio.Writer
	ledgers map[uint8]*relay.GapLedger

	events chan Event
	gaps   chan Gap
	resets chan SequenceReset

	cancel context.CancelFunc
	done   chan struct{}
}

// Dial opens a Session and starts its background read/reconnect loop. The
// returned Session must be closed with Close when no longer needed.
func Dial(ctx context.Context, opts Options) (*Session, error) {
	if opts.Network == "" {
		opts.Network = "unix"
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	sessCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		opts:    opts,
		log:     opts.Log,
		ledgers: make(map[uint8]*relay.GapLedger),
		events:  make(chan Event, 256),
		gaps:    make(chan Gap, 32),
		resets:  make(chan SequenceReset, 32),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(sessCtx)
	return s, nil
}

// Events returns the channel of decoded domain messages.
func (s *Session) Events() <-chan Event { return s.events }

// Gaps returns the channel of detected sequence gaps (spec §4.4). After each
// message that leaves its source_type's ledger with open gaps, every open gap
// is sent again, so the same gap can arrive more than once; a send is dropped
// when the channel is full.
func (s *Session) Gaps() <-chan Gap { return s.gaps }

// Resets returns the channel of detected producer sequence resets.
func (s *Session) Resets() <-chan SequenceReset { return s.resets }

// Close cancels the session's background loop and waits for it to drain.
func (s *Session) Close(ctx context.Context) error {
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	backoff := DefaultBackoff()

	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connectAndServe(ctx); err != nil && s.log != nil {
			s.log.WithError(err).Warn("consumer session disconnected")
		}
		if ctx.Err() != nil {
			return
		}
		for _, l := range s.ledgers {
			l.Disconnect()
		}
		delay := backoff.Next()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) connectAndServe(ctx context.Context) error {
	conn, err := transport.Dial(s.opts.Network, s.opts.Address)
	if err != nil {
		return fmt.Errorf("consumer: dial: %w", err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.writer = bufio.NewWriter(conn)
	// Ledgers from a prior connection are intentionally kept, not replaced:
	// resuming them (rather than starting fresh) lets the first post-
	// reconnect sequence for each source_type be compared against what was
	// expected before the outage, so the outage itself surfaces as a gap
	// instead of being silently swallowed.
	for _, l := range s.ledgers {
		l.Resume()
	}
	s.mu.Unlock()

	if err := s.sendSubscribe(); err != nil {
		return fmt.Errorf("consumer: subscribe: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	reader := transport.NewFrameReader(conn)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		frame, err := reader.ReadFrame()
		if err != nil {
			return err
		}
		if err := s.handleFrame(frame); err != nil && s.log != nil {
			s.log.WithError(err).Warn("malformed frame from relay")
		}
	}
}

func (s *Session) handleFrame(frame []byte) error {
	h, err := protocol.DecodeHeader(frame)
	if err != nil {
		return err
	}
	if err := h.ValidateMagicVersion(); err != nil {
		return err
	}
	if h.RelayDomain == 0 {
		return s.handleControl(frame)
	}

	ledger := s.ledgerFor(h.SourceType)
	prevExpected := ledger.ExpectedSequence()
	if h.Sequence != 0 && h.Sequence < prevExpected && prevExpected > 1 {
		s.resetLedger(h.SourceType)
		ledger = s.ledgerFor(h.SourceType)
		select {
		case s.resets <- SequenceReset{SourceType: h.SourceType}:
		default:
		}
		if err := s.requestRecovery(h.SourceType, 1, h.Sequence, protocol.RecoverySnapshot); err != nil && s.log != nil {
			s.log.WithError(err).Warn("failed to request snapshot after sequence reset")
		}
	}
	ledger.Observe(h.Sequence)
	if ledger.HasOpenGaps() {
		for _, g := range ledger.Gaps() {
			select {
			case s.gaps <- Gap{SourceType: h.SourceType, Start: g.Start, End: g.End}:
			default:
			}
		}
	}

	select {
	case s.events <- Event{Header: h, TLVs: frame[protocol.HeaderSize:]}:
	default:
		if s.log != nil {
			s.log.Warn("event channel full, dropping message")
		}
	}
	return nil
}

func (s *Session) handleControl(frame []byte) error {
	parsed, err := protocol.ParseControl(frame)
	if err != nil {
		return err
	}
	it := parsed.Iterator()
	for {
		tlv, ok := it.Next()
		if !ok {
			break
		}
		if tlv.Type != protocol.TLVRecoveryRequired {
			continue
		}
		req, err := protocol.DecodeRecoveryRequiredPayload(tlv.Payload)
		if err != nil {
			return err
		}
		s.ledgerFor(req.SourceType).BeginRecovery()
		if req.RequiredKind == protocol.RecoverySnapshot {
			s.resetLedger(req.SourceType)
		}
	}
	return nil
}

func (s *Session) ledgerFor(sourceType uint8) *relay.GapLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ledgers[sourceType]
	if !ok {
		l = relay.NewGapLedger()
		s.ledgers[sourceType] = l
	}
	return l
}

func (s *Session) resetLedger(sourceType uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[sourceType] = relay.NewGapLedger()
}

func (s *Session) sendSubscribe() error {
	payload := protocol.EncodeSubscribePayload(protocol.SubscribePayload{Topics: s.opts.Topics})
	return s.sendControl(protocol.TLVSubscribe, payload)
}

func (s *Session) requestRecovery(sourceType uint8, start, end uint64, kind protocol.RecoveryKind) error {
	payload := protocol.EncodeRecoveryRequestPayload(protocol.RecoveryRequestPayload{
		ConsumerID: s.opts.ID,
		SourceType: sourceType,
		Start:      start,
		End:        end,
		Kind:       kind,
	})
	return s.sendControl(protocol.TLVRecoveryRequest, payload)
}

func (s *Session) sendControl(tlvType uint8, payload []byte) error {
	region, err := protocol.AppendTLV(nil, protocol.TLV{Type: tlvType, Payload: payload})
	if err != nil {
		return err
	}
	h := protocol.Header{
		Magic:       protocol.Magic,
		Version:     protocol.Version,
		RelayDomain: 0,
		PayloadSize: uint32(len(region)),
		TimestampNS: uint64(time.Now().UnixNano()),
	}
	out := make([]byte, protocol.HeaderSize+len(region))
	h.Encode(out[:protocol.HeaderSize])
	copy(out[protocol.HeaderSize:], region)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return fmt.Errorf("consumer: not connected")
	}
	if err := transport.WriteFrame(s.writer, out); err != nil {
		return err
	}
	return s.writer.Flush()
}
