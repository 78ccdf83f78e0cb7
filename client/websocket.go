package client

import (
	"chat-stress/contract"
	"chat-stress/domain"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// WebsocketDialer opens one authenticated connection per session at {base}/{id}.
type WebsocketDialer struct {
	base   string
	dialer *websocket.Dialer
}

func NewWebsocketDialer(base string, handshakeTimeout time.Duration) *WebsocketDialer {
	return &WebsocketDialer{
		base: strings.TrimRight(base, "/"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial authenticates with the bearer token and sends the session id as device id.
func (d *WebsocketDialer) Dial(ctx context.Context, creds domain.Credentials) (domain.DuplexConn, error) {
	target := d.base + "/" + url.PathEscape(creds.ID)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+creds.Token)
	headers.Set("X-Device-ID", creds.ID)

	conn, resp, err := d.dialer.DialContext(ctx, target, headers)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("dial %s (HTTP %d): %w", target, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &WSConn{conn: conn}, nil
}

// WSConn adapts a gorilla connection to domain.DuplexConn.
type WSConn struct {
	conn *websocket.Conn
}

func (c *WSConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *WSConn) WriteJSON(v any) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

// Close sends a close frame on a best-effort basis, then drops the socket.
func (c *WSConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

var _ contract.IDialer = (*WebsocketDialer)(nil)
var _ domain.DuplexConn = (*WSConn)(nil)
