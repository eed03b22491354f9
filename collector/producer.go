package collector

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/alphapulse/relay/protocol"
	"github.com/alphapulse/relay/transport"
)

// Producer owns a connection to one relay domain socket and a sequence
// counter for one source_type, building and sending wire messages for
// whatever decoded events the caller feeds it.
type Producer struct {
	conn       net.Conn
	writer     *bufio.Writer
	domain     protocol.Domain
	sourceType uint8
	seq        *protocol.SequenceCounter
}

// DialProducer connects to a relay's socket as one (domain, source_type)
// producer stream.
func DialProducer(network, address string, domain protocol.Domain, sourceType uint8) (*Producer, error) {
	conn, err := transport.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("collector: dial relay %s %s: %w", network, address, err)
	}
	return &Producer{
		conn:       conn,
		writer:     bufio.NewWriter(conn),
		domain:     domain,
		sourceType: sourceType,
		seq:        &protocol.SequenceCounter{},
	}, nil
}

// SendTrade builds and sends one TradePayload.
func (p *Producer) SendTrade(t protocol.TradePayload) error {
	return p.send(protocol.TLVTrade, protocol.EncodeTradePayload(t))
}

// SendQuote builds and sends one QuotePayload.
func (p *Producer) SendQuote(q protocol.QuotePayload) error {
	return p.send(protocol.TLVQuote, protocol.EncodeQuotePayload(q))
}

// SendPoolSwap builds and sends one PoolSwapPayload.
func (p *Producer) SendPoolSwap(s protocol.PoolSwapPayload) error {
	return p.send(protocol.TLVPoolSwap, protocol.EncodePoolSwapPayload(s))
}

func (p *Producer) send(tlvType uint8, payload []byte) error {
	frame, err := protocol.NewBuilder(p.domain, p.sourceType, p.seq, time.Now).
		Add(tlvType, payload).
		Build()
	if err != nil {
		return fmt.Errorf("collector: build message: %w", err)
	}
	if err := transport.WriteFrame(p.writer, frame); err != nil {
		return fmt.Errorf("collector: send message: %w", err)
	}
	return p.writer.Flush()
}

// Close disconnects from the relay.
func (p *Producer) Close() error { return p.conn.Close() }
