package ws

import (
	"log/slog"

	"github.com/gorilla/websocket"
)

// Client is one dashboard's event-stream connection. A failed write
// closes the connection; the hub drops the subscriber on the returned
// error.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger
}

func NewClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{conn: conn, log: logger}
}

// Send pushes one firmware event frame to the browser.
func (c *Client) Send(payload []byte) error {
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "error", err)
		_ = c.conn.Close()
		return err
	}
	return nil
}

func (c *Client) Close() {
	_ = c.conn.Close()
}
