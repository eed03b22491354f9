// Package relay implements the domain-segregated relay fabric: one Server
// instance per domain (MarketData, Signal, Execution), each enforcing its
// own validation and recovery policy while sharing the same connection and
// fan-out machinery.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphapulse/relay/protocol"
	"github.com/alphapulse/relay/transport"
	"github.com/sirupsen/logrus"
)

// Server accepts producer and consumer connections for one domain and
// applies that domain's Policy on both the ingestion and fan-out paths.
type Server struct {
	policy    Policy
	producers *ProducerTable
	audit     *AuditTrail

	log *logrus.Entry

	mu        sync.RWMutex
	replay    map[uint8]*ReplayBuffer
	consumers map[*Connection]*ConsumerState
	all       map[*Connection]struct{}

	rejected uint64
}

// NewServer constructs a Server for policy. audit may be nil unless
// policy.AuditEnabled is set, in which case the caller must supply one.
func NewServer(policy Policy, audit *AuditTrail, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		policy:    policy,
		producers: NewProducerTable(),
		audit:     audit,
		log:       log.WithField("domain", policy.Domain.String()),
		replay:    make(map[uint8]*ReplayBuffer),
		consumers: make(map[*Connection]*ConsumerState),
		all:       make(map[*Connection]struct{}),
	}
}

// Serve listens on network/address and accepts connections until ctx is
// canceled.
func (s *Server) Serve(ctx context.Context, network, address string) error {
	ln, err := transport.Listen(network, address)
	if err != nil {
		return fmt.Errorf("relay: listen %s %s: %w", network, address, err)
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	if s.policy.SlowConsumerTimeoutSeconds > 0 {
		go s.watchSlowConsumers(ctx)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("relay: accept: %w", err)
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, netConn net.Conn) {
	conn := NewConnection(netConn, s.policy.HighWater, s.log)
	s.addConnection(conn)
	defer s.removeConnection(conn)

	err := conn.Run(ctx, func(frame []byte) error {
		return s.ingest(ctx, conn, frame)
	})
	if err != nil && s.log != nil {
		s.log.WithError(err).Debug("connection closed")
	}
}

// watchSlowConsumers periodically disconnects any connection whose outbound
// queue has stayed at high water for longer than
// policy.SlowConsumerTimeoutSeconds (spec §5). It runs for the lifetime of
// Serve whenever that timeout is configured.
func (s *Server) watchSlowConsumers(ctx context.Context) {
	limit := time.Duration(s.policy.SlowConsumerTimeoutSeconds) * time.Second
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.RLock()
			slow := make([]*Connection, 0)
			for c := range s.all {
				if c.TimeAtHighWater() >= limit {
					slow = append(slow, c)
				}
			}
			s.mu.RUnlock()
			for _, c := range slow {
				if s.log != nil {
					s.log.Warn("disconnecting slow consumer: outbound queue stayed at high water past timeout")
				}
				c.Close()
			}
		}
	}
}

func (s *Server) addConnection(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all[c] = struct{}{}
}

func (s *Server) removeConnection(c *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.all, c)
	delete(s.consumers, c)
}

// replayBufferFor returns (creating on first use) the ReplayBuffer for
// sourceType.
func (s *Server) replayBufferFor(sourceType uint8) *ReplayBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	rb, ok := s.replay[sourceType]
	if !ok {
		rb = NewReplayBuffer(s.policy.ReplayBufferMessages, time.Duration(s.policy.ReplayBufferMaxAgeSeconds)*time.Second)
		s.replay[sourceType] = rb
	}
	return rb
}

// Rejected returns the running count of ingestion-path rejections, for
// metrics (spec §4.3 step 1-4 "reject ... increment rejection counter").
func (s *Server) Rejected() uint64 { return atomic.LoadUint64(&s.rejected) }

func (s *Server) reject(err error) error {
	atomic.AddUint64(&s.rejected, 1)
	return err
}

// ingest implements spec §4.3's Ingestion Path steps 1-7 for one inbound
// frame, dispatching to handleControl for control-range messages.
func (s *Server) ingest(ctx context.Context, conn *Connection, frame []byte) error {
	h, err := protocol.DecodeHeader(frame)
	if err != nil {
		conn.BumpBan(BanDeltaTruncated)
		return s.reject(err)
	}
	if err := h.ValidateMagicVersion(); err != nil {
		conn.BumpBan(BanDeltaTruncated)
		return s.reject(err)
	}
	if h.RelayDomain == 0 {
		return s.handleControl(conn, frame)
	}

	parsed, err := protocol.Parse(frame, protocol.ParseOptions{
		VerifyChecksum: s.policy.ChecksumEnabled,
		ExpectDomain:   s.policy.Domain,
	})
	if err != nil {
		switch err {
		case protocol.ErrChecksumMismatch:
			conn.BumpBan(BanDeltaChecksumMismatch)
		case protocol.ErrDomainMismatch, protocol.ErrTLVOutOfDomain:
			conn.BumpBan(BanDeltaOutOfDomain)
		default:
			conn.BumpBan(BanDeltaTruncated)
		}
		return s.reject(err)
	}

	sourceType := parsed.Header.SourceType
	seq := parsed.Header.Sequence

	ps := conn.ProducerStateFor(sourceType, s.producers)
	if !ps.Observe(seq) && s.log != nil {
		s.log.WithField("source_type", sourceType).WithField("sequence", seq).Warn("non-monotonic producer sequence")
	}

	if s.policy.AuditEnabled && s.audit != nil {
		if err := s.audit.Record(sourceType, seq, frame); err != nil && s.log != nil {
			s.log.WithError(err).Error("audit persist failed")
		}
	}
	s.replayBufferFor(sourceType).Append(seq, frame, time.Now())

	s.fanout(ctx, TopicOrDefault(sourceType), sourceType, seq, frame)
	return nil
}

// handleControl decodes a control-range message and dispatches Subscribe
// and RecoveryRequest TLVs.
func (s *Server) handleControl(conn *Connection, frame []byte) error {
	parsed, err := protocol.ParseControl(frame)
	if err != nil {
		conn.BumpBan(BanDeltaMalformedControl)
		return s.reject(err)
	}
	it := parsed.Iterator()
	for {
		tlv, ok := it.Next()
		if !ok {
			break
		}
		switch tlv.Type {
		case protocol.TLVSubscribe:
			sub, err := protocol.DecodeSubscribePayload(tlv.Payload)
			if err != nil {
				conn.BumpBan(BanDeltaMalformedControl)
				return s.reject(err)
			}
			s.subscribe(conn, sub.Topics)
		case protocol.TLVRecoveryRequest:
			req, err := protocol.DecodeRecoveryRequestPayload(tlv.Payload)
			if err != nil {
				conn.BumpBan(BanDeltaMalformedControl)
				return s.reject(err)
			}
			s.fulfillRecovery(conn, req)
		}
	}
	return nil
}

func (s *Server) subscribe(conn *Connection, topics []string) {
	cs := conn.Consumer(fmt.Sprintf("%p", conn))
	cs.SetTopics(topics)
	s.mu.Lock()
	s.consumers[conn] = cs
	s.mu.Unlock()
}

func (s *Server) fulfillRecovery(conn *Connection, req protocol.RecoveryRequestPayload) {
	frames, required, err := s.HandleRecoveryRequest(req)
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).Warn("recovery request failed")
		}
		return
	}
	if required != nil {
		conn.Enqueue(required)
		return
	}
	for _, f := range frames {
		conn.Enqueue(f)
	}
}

// fanout delivers frame to every consumer subscribed to topic, applying
// the domain's backpressure policy and advancing each consumer's gap
// ledger for sourceType.
func (s *Server) fanout(ctx context.Context, topic string, sourceType uint8, seq uint64, frame []byte) {
	s.mu.RLock()
	targets := make([]*Connection, 0, len(s.consumers))
	states := make([]*ConsumerState, 0, len(s.consumers))
	for c, cs := range s.consumers {
		if s.policy.DirectBroadcast || cs.Subscribed(topic) {
			targets = append(targets, c)
			states = append(states, cs)
		}
	}
	s.mu.RUnlock()

	for i, c := range targets {
		cs := states[i]
		ledger := cs.LedgerFor(sourceType)
		ledger.Observe(seq)

		switch s.policy.Backpressure {
		case DropOldest:
			c.DropOldestAndEnqueue(frame)
		case BlockProducer:
			_ = c.EnqueueBlocking(ctx, frame)
		}

		if ledger.HasOpenGaps() && ledger.WidestGap() > s.policy.GapThreshold {
			ledger.BeginRecovery()
			if required, err := buildControlFrame(protocol.TLVRecoveryRequired, protocol.EncodeRecoveryRequiredPayload(protocol.RecoveryRequiredPayload{
				SourceType:   sourceType,
				Start:        ledger.Gaps()[0].Start,
				End:          ledger.Gaps()[0].End,
				RequiredKind: protocol.RecoverySnapshot,
			})); err == nil {
				c.Enqueue(required)
			}
		}
	}
}
