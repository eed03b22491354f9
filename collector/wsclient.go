// Package collector is a thin, reference-only producer: it dials an
// exchange WebSocket feed and republishes decoded trades onto a relay as
// AlphaPulse wire messages. It does not parse any particular exchange's
// JSON wire format — WSClient.Messages() hands the caller raw frames and
// leaves venue-specific decoding to the caller.
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient wraps a gorilla/websocket connection to one exchange feed.
type WSClient struct {
	conn *websocket.Conn
}

// DialWS connects to url with a bounded handshake timeout, the same shape
// as a net.Dialer-with-timeout used elsewhere in the pack for outbound
// connections.
func DialWS(ctx context.Context, url string) (*WSClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("collector: dial %s: %w", url, err)
	}
	return &WSClient{conn: conn}, nil
}

// Messages returns a channel of raw text/binary frames read from the feed.
// The channel closes when the connection errors or ctx is canceled.
func (c *WSClient) Messages(ctx context.Context) <-chan []byte {
	out := make(chan []byte, 64)
	go func() {
		defer close(out)
		defer c.conn.Close()
		go func() {
			<-ctx.Done()
			_ = c.conn.Close()
		}()
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case out <- data:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close closes the underlying WebSocket connection.
func (c *WSClient) Close() error { return c.conn.Close() }
