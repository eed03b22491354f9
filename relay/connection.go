package relay

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/alphapulse/relay/transport"
	"github.com/sirupsen/logrus"
)

const (
	defaultIdleTimeout = 30 * time.Second
	maxConsecutiveErrs = 16
)

// Connection wraps one inbound net.Conn. A connection is untyped until the
// relay observes either a complete protocol message (producer behavior) or
// a Subscribe control TLV (consumer behavior); both can apply to the same
// connection (spec §4.3 "role is discovered, not declared").
type Connection struct {
	conn   net.Conn
	reader *transport.FrameReader
	writer *bufio.Writer

	log *logrus.Entry

	ban          BanScore
	errCount     int
	producerSeen map[uint8]*ProducerState

	consumer *ConsumerState // non-nil once a Subscribe TLV has been received

	outbound  chan []byte
	closeOnce sync.Once

	hwMu           sync.Mutex
	highWaterSince time.Time // zero if the outbound queue isn't currently full
}

// NewConnection constructs a Connection around conn with a bounded outbound
// queue of depth highWater.
func NewConnection(conn net.Conn, highWater int, log *logrus.Entry) *Connection {
	return &Connection{
		conn:         conn,
		reader:       transport.NewFrameReader(conn),
		writer:       bufio.NewWriter(conn),
		log:          log,
		producerSeen: make(map[uint8]*ProducerState),
		outbound:     make(chan []byte, highWater),
	}
}

// Run drives the connection until ctx is canceled or the peer disconnects.
// It starts the outbound writer loop and blocks in the inbound read loop,
// calling handle for each fully-framed message. A cancellation-watcher
// goroutine forces read/write deadlines on ctx.Done() so both loops
// unblock promptly, mirroring the teacher's handshake cancellation
// pattern.
func (c *Connection) Run(ctx context.Context, handle func(frame []byte) error) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.SetReadDeadline(time.Now())
			_ = c.conn.SetWriteDeadline(time.Now())
		case <-done:
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	err := c.readLoop(ctx, handle)

	c.Close()
	wg.Wait()
	return err
}

func (c *Connection) readLoop(ctx context.Context, handle func(frame []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(defaultIdleTimeout))
		frame, err := c.reader.ReadFrame()
		if err != nil {
			return err
		}
		if err := handle(frame); err != nil {
			c.errCount++
			if c.log != nil {
				c.log.WithError(err).Warn("protocol error on connection")
			}
			if c.errCount >= maxConsecutiveErrs || c.ban.ShouldBan(time.Now()) {
				return err
			}
			continue
		}
		c.errCount = 0
	}
}

func (c *Connection) writeLoop() {
	for frame := range c.outbound {
		_ = c.conn.SetWriteDeadline(time.Now().Add(defaultIdleTimeout))
		if err := transport.WriteFrame(c.writer, frame); err != nil {
			if c.log != nil {
				c.log.WithError(err).Warn("write error, closing connection")
			}
			c.Close()
			return
		}
		if err := c.writer.Flush(); err != nil {
			if c.log != nil {
				c.log.WithError(err).Warn("flush error, closing connection")
			}
			c.Close()
			return
		}
	}
}

// Enqueue pushes frame onto the outbound queue. ok is false if the queue
// was full and the caller's backpressure policy must decide what to do.
func (c *Connection) Enqueue(frame []byte) (ok bool) {
	select {
	case c.outbound <- frame:
		ok = true
	default:
		ok = false
	}
	c.observeQueueDepth()
	return ok
}

// EnqueueBlocking pushes frame onto the outbound queue, blocking until
// there is room or ctx is canceled (BlockProducer backpressure policy).
func (c *Connection) EnqueueBlocking(ctx context.Context, frame []byte) error {
	c.observeQueueDepth()
	select {
	case c.outbound <- frame:
		c.observeQueueDepth()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DropOldestAndEnqueue makes room by discarding the oldest queued frame
// (non-blocking) and enqueues frame (DropOldest backpressure policy).
func (c *Connection) DropOldestAndEnqueue(frame []byte) {
	select {
	case <-c.outbound:
	default:
	}
	select {
	case c.outbound <- frame:
	default:
	}
	c.observeQueueDepth()
}

// observeQueueDepth records when the outbound queue first reached capacity,
// and clears that mark once it drops back below. TimeAtHighWater reports
// how long it has stayed there, for the slow-consumer watchdog (spec §5:
// "a consumer whose queue stays at high water for longer than
// slow_consumer_timeout_seconds is forcibly disconnected").
func (c *Connection) observeQueueDepth() {
	full := len(c.outbound) >= cap(c.outbound)
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	if full {
		if c.highWaterSince.IsZero() {
			c.highWaterSince = time.Now()
		}
	} else {
		c.highWaterSince = time.Time{}
	}
}

// TimeAtHighWater reports how long the outbound queue has been continuously
// full, or 0 if it isn't currently full.
func (c *Connection) TimeAtHighWater() time.Duration {
	c.hwMu.Lock()
	defer c.hwMu.Unlock()
	if c.highWaterSince.IsZero() {
		return 0
	}
	return time.Since(c.highWaterSince)
}

// BumpBan applies a ban-score delta for a protocol violation observed on
// this connection.
func (c *Connection) BumpBan(delta int) int {
	return c.ban.Add(time.Now(), delta)
}

// ProducerStateFor returns the cached ProducerState for sourceType on this
// connection, registering a fresh one with table on first use.
func (c *Connection) ProducerStateFor(sourceType uint8, table *ProducerTable) *ProducerState {
	if s, ok := c.producerSeen[sourceType]; ok {
		return s
	}
	s := table.Register(sourceType)
	c.producerSeen[sourceType] = s
	return s
}

// Consumer returns the connection's ConsumerState, creating one with id if
// it doesn't exist yet (first Subscribe received).
func (c *Connection) Consumer(id string) *ConsumerState {
	if c.consumer == nil {
		c.consumer = NewConsumerState(id)
	}
	return c.consumer
}

// IsConsumer reports whether this connection has subscribed.
func (c *Connection) IsConsumer() bool { return c.consumer != nil }

// Close shuts down the connection exactly once: closes the outbound queue
// (stopping writeLoop) and the underlying net.Conn.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.outbound)
		_ = c.conn.Close()
	})
}
