package collector

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/alphapulse/relay/protocol"
	"github.com/alphapulse/relay/transport"
)

func TestProducerSendTradeRoundTrip(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "relay.sock")
	ln, err := transport.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	p, err := DialProducer("unix", sockPath, protocol.DomainMarketData, 2)
	if err != nil {
		t.Fatalf("DialProducer: %v", err)
	}
	defer p.Close()

	trade := protocol.TradePayload{InstrumentID: 42, Price: 123456789, Volume: 10, Side: protocol.SideBuy, TimestampNS: 1}
	if err := p.SendTrade(trade); err != nil {
		t.Fatalf("SendTrade: %v", err)
	}

	var serverConn net.Conn
	select {
	case serverConn = <-accepted:
	case <-time.After(time.Second):
		t.Fatalf("relay never accepted the producer connection")
	}
	defer serverConn.Close()

	reader := transport.NewFrameReader(serverConn)
	frame, err := reader.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	parsed, err := protocol.Parse(frame, protocol.ParseOptions{ExpectDomain: protocol.DomainMarketData})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tlv, ok := parsed.Iterator().Next()
	if !ok || tlv.Type != protocol.TLVTrade {
		t.Fatalf("expected a trade TLV")
	}
	got, err := protocol.DecodeTradePayload(tlv.Payload)
	if err != nil {
		t.Fatalf("DecodeTradePayload: %v", err)
	}
	if got.InstrumentID != trade.InstrumentID || got.Price != trade.Price {
		t.Fatalf("round-tripped trade mismatch: got %+v, want %+v", got, trade)
	}
}
