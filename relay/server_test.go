package relay

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/alphapulse/relay/protocol"
)

func newTestConnection(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	return NewConnection(server, 16, nil), client
}

func buildTestFrame(t *testing.T, domain protocol.Domain, sourceType uint8, tlvType uint8, payload []byte) []byte {
	t.Helper()
	seq := &protocol.SequenceCounter{}
	out, err := protocol.NewBuilder(domain, sourceType, seq, time.Now).Add(tlvType, payload).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return out
}

func TestIngestRejectsDomainMismatch(t *testing.T) {
	s := NewServer(Policy{Domain: protocol.DomainMarketData, ChecksumEnabled: false, Backpressure: DropOldest, HighWater: 16}, nil, nil)
	conn, _ := newTestConnection(t)

	frame := buildTestFrame(t, protocol.DomainSignal, 20, protocol.TLVArbitrageSignal, []byte{1})
	err := s.ingest(context.Background(), conn, frame)
	if err != protocol.ErrDomainMismatch {
		t.Fatalf("expected ErrDomainMismatch, got %v", err)
	}
	if s.Rejected() != 1 {
		t.Fatalf("expected rejected count 1, got %d", s.Rejected())
	}
}

func TestIngestChecksumPolicyDifference(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	frame := buildTestFrame(t, protocol.DomainMarketData, 2, protocol.TLVTrade, payload)
	frame[len(frame)-1] ^= 0xFF // corrupt last byte of payload

	market := NewServer(Policy{Domain: protocol.DomainMarketData, ChecksumEnabled: false, Backpressure: DropOldest, HighWater: 16}, nil, nil)
	conn1, _ := newTestConnection(t)
	if err := market.ingest(context.Background(), conn1, frame); err != nil {
		t.Fatalf("expected MarketData (checksum disabled) to forward corrupted message, got %v", err)
	}

	signalFrame := buildTestFrame(t, protocol.DomainSignal, 20, protocol.TLVArbitrageSignal, payload)
	signalFrame[len(signalFrame)-1] ^= 0xFF
	signal := NewServer(Policy{Domain: protocol.DomainSignal, ChecksumEnabled: true, Backpressure: BlockProducer, HighWater: 16}, nil, nil)
	conn2, _ := newTestConnection(t)
	if err := signal.ingest(context.Background(), conn2, signalFrame); err != protocol.ErrChecksumMismatch {
		t.Fatalf("expected Signal (checksum enabled) to reject corrupted message, got %v", err)
	}
}

func TestFanoutRespectsTopicSubscription(t *testing.T) {
	s := NewServer(Policy{Domain: protocol.DomainMarketData, ChecksumEnabled: false, Backpressure: DropOldest, HighWater: 16}, nil, nil)

	krakenConn, _ := newTestConnection(t)
	s.subscribe(krakenConn, []string{"market_data_kraken"})

	polygonConn, _ := newTestConnection(t)
	s.subscribe(polygonConn, []string{"market_data_polygon"})

	frame := buildTestFrame(t, protocol.DomainMarketData, 2 /* kraken */, protocol.TLVTrade, []byte{9, 9, 9, 9})
	if err := s.ingest(context.Background(), krakenConn, frame); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	select {
	case got := <-krakenConn.outbound:
		if string(got) != string(frame) {
			t.Fatalf("kraken consumer got unexpected frame")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected kraken-subscribed consumer to receive the message")
	}

	select {
	case <-polygonConn.outbound:
		t.Fatalf("polygon-subscribed consumer should not have received a kraken message")
	default:
	}
}

func TestFanoutDirectBroadcastBypassesTopics(t *testing.T) {
	s := NewServer(Policy{Domain: protocol.DomainMarketData, ChecksumEnabled: false, Backpressure: DropOldest, HighWater: 16, DirectBroadcast: true}, nil, nil)
	conn, _ := newTestConnection(t)
	s.subscribe(conn, []string{"market_data_polygon"}) // not kraken

	frame := buildTestFrame(t, protocol.DomainMarketData, 2 /* kraken */, protocol.TLVTrade, []byte{1})
	if err := s.ingest(context.Background(), conn, frame); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	select {
	case <-conn.outbound:
	case <-time.After(time.Second):
		t.Fatalf("expected direct-broadcast delivery regardless of subscription")
	}
}

func TestRecoveryRetransmitWithinWindow(t *testing.T) {
	s := NewServer(Policy{Domain: protocol.DomainExecution, ChecksumEnabled: true, Backpressure: BlockProducer, HighWater: 16, ReplayBufferMessages: 100, ReplayBufferMaxAgeSeconds: 60}, nil, nil)
	conn, _ := newTestConnection(t)

	seq := &protocol.SequenceCounter{}
	for i := 0; i < 3; i++ {
		frame, err := protocol.NewBuilder(protocol.DomainExecution, 40, seq, time.Now).Add(protocol.TLVOrderRequest, []byte{byte(i)}).Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if err := s.ingest(context.Background(), conn, frame); err != nil {
			t.Fatalf("ingest: %v", err)
		}
		// Nothing needs draining: this connection is not a subscriber, so
		// fan-out enqueues nothing onto it in this test.
	}

	req := protocol.RecoveryRequestPayload{ConsumerID: "c1", SourceType: 40, Start: 1, End: 2, Kind: protocol.RecoveryRetransmit}
	frames, required, err := s.HandleRecoveryRequest(req)
	if err != nil {
		t.Fatalf("HandleRecoveryRequest: %v", err)
	}
	if required != nil {
		t.Fatalf("expected no RecoveryRequired frame for in-window retransmit")
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 retransmitted frames, got %d", len(frames))
	}
}

func TestRecoveryFallsBackToAuditTrailBeyondReplayWindow(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.bbolt")
	audit, err := OpenAuditTrail(auditPath)
	if err != nil {
		t.Fatalf("OpenAuditTrail: %v", err)
	}
	defer audit.Close()

	// A replay window of 1 message means every message but the most recent
	// one immediately falls out of the in-memory ring, forcing the audit
	// trail to be the only way to serve a wider retransmit request.
	policy := Policy{Domain: protocol.DomainExecution, ChecksumEnabled: true, Backpressure: BlockProducer, HighWater: 16,
		ReplayBufferMessages: 1, ReplayBufferMaxAgeSeconds: 60, AuditEnabled: true}
	s := NewServer(policy, audit, nil)
	conn, _ := newTestConnection(t)

	seq := &protocol.SequenceCounter{}
	for i := 0; i < 3; i++ {
		frame, err := protocol.NewBuilder(protocol.DomainExecution, 40, seq, time.Now).Add(protocol.TLVOrderRequest, []byte{byte(i)}).Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if err := s.ingest(context.Background(), conn, frame); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	req := protocol.RecoveryRequestPayload{ConsumerID: "c1", SourceType: 40, Start: 1, End: 2, Kind: protocol.RecoveryRetransmit}
	frames, required, err := s.HandleRecoveryRequest(req)
	if err != nil {
		t.Fatalf("HandleRecoveryRequest: %v", err)
	}
	if required != nil {
		t.Fatalf("expected the audit trail to serve this request without escalating to snapshot")
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames recovered from the audit trail, got %d", len(frames))
	}
}

func TestRecoveryOutOfWindowEscalatesToSnapshot(t *testing.T) {
	s := NewServer(Policy{Domain: protocol.DomainMarketData, Backpressure: DropOldest, HighWater: 16}, nil, nil)
	req := protocol.RecoveryRequestPayload{ConsumerID: "c1", SourceType: 99, Start: 1, End: 2, Kind: protocol.RecoveryRetransmit}
	frames, required, err := s.HandleRecoveryRequest(req)
	if err != nil {
		t.Fatalf("HandleRecoveryRequest: %v", err)
	}
	if frames != nil {
		t.Fatalf("expected no frames when out of window")
	}
	if required == nil {
		t.Fatalf("expected a RecoveryRequired control frame")
	}
	parsed, err := protocol.ParseControl(required)
	if err != nil {
		t.Fatalf("ParseControl: %v", err)
	}
	tlv, ok := parsed.Iterator().Next()
	if !ok || tlv.Type != protocol.TLVRecoveryRequired {
		t.Fatalf("expected a RecoveryRequired TLV")
	}
	got, err := protocol.DecodeRecoveryRequiredPayload(tlv.Payload)
	if err != nil {
		t.Fatalf("DecodeRecoveryRequiredPayload: %v", err)
	}
	if got.RequiredKind != protocol.RecoverySnapshot {
		t.Fatalf("expected escalation to snapshot, got %v", got.RequiredKind)
	}
}
