// Package transport provides the websocket implementation of
// netsync.Conn plus bounded reconnection. It is the only package that
// knows which byte-channel library carries the protocol.
package transport

import (
	"context"

	"github.com/coder/websocket"
)

// WSConn adapts a websocket connection to netsync.Conn.
type WSConn struct {
	conn *websocket.Conn
}

// NewWSConn wraps an accepted or dialed websocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

// Dial opens a client connection to a host endpoint.
func Dial(ctx context.Context, url string) (*WSConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &WSConn{conn: conn}, nil
}

// Send writes one protocol frame.
func (c *WSConn) Send(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Close closes the connection with a normal-closure status.
func (c *WSConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}

// ReadLoop delivers inbound frames to handler until the connection
// drops; the read error is returned so the caller can decide between
// reconnecting and giving up.
func (c *WSConn) ReadLoop(ctx context.Context, handler func(data []byte)) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		handler(data)
	}
}
