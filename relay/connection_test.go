package relay

import (
	"context"
	"testing"
	"time"
)

func TestConnectionTracksTimeAtHighWater(t *testing.T) {
	conn, _ := newTestConnection(t)
	conn.outbound = make(chan []byte, 1) // override the shared helper's depth-16 queue

	if conn.TimeAtHighWater() != 0 {
		t.Fatalf("expected no high-water mark on an empty queue")
	}

	if ok := conn.Enqueue([]byte("a")); !ok {
		t.Fatalf("expected first enqueue into a 1-deep queue to succeed")
	}
	if conn.TimeAtHighWater() <= 0 {
		t.Fatalf("expected a high-water mark once the queue is full")
	}

	// Draining below capacity clears the mark.
	<-conn.outbound
	conn.observeQueueDepth()
	if conn.TimeAtHighWater() != 0 {
		t.Fatalf("expected high-water mark to clear once the queue has room again")
	}
}

func TestWatchSlowConsumersDisconnectsPastTimeout(t *testing.T) {
	s := NewServer(Policy{
		Domain:                     3,
		Backpressure:               DropOldest,
		HighWater:                  1,
		SlowConsumerTimeoutSeconds: 1,
	}, nil, nil)

	conn, client := newTestConnection(t)
	conn.outbound = make(chan []byte, 1)
	s.addConnection(conn)

	// Fill the queue and backdate the high-water mark so the watchdog finds
	// it already past the configured timeout without needing to sleep
	// through real seconds.
	conn.Enqueue([]byte("a"))
	conn.hwMu.Lock()
	conn.highWaterSince = time.Now().Add(-5 * time.Second)
	conn.hwMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.watchSlowConsumers(ctx)

	buf := make([]byte, 1)
	_ = client.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, err := client.Read(buf); err == nil {
		t.Fatalf("expected the slow connection's underlying conn to be closed")
	}
}
