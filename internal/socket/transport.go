package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of a websocket connection the manager needs.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	// OnPing registers fn to run for every ping the gateway sends. It runs on
	// the reading goroutine, before the pong is written.
	OnPing(fn func())
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

type WebsocketDialer struct {
	Header           http.Header
	HandshakeTimeout time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	target, err := NormalizeEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}
	conn, resp, err := dialer.DialContext(ctx, target, d.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return wsConn{conn}, nil
}

const pongWait = time.Second

type wsConn struct {
	*websocket.Conn
}

// OnPing replaces gorilla's default ping handler, keeping its pong reply.
func (c wsConn) OnPing(fn func()) {
	c.SetPingHandler(func(appData string) error {
		fn()
		err := c.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(pongWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	})
}

// NormalizeEndpoint accepts the http(s) base URL the web client was
// configured with and turns it into the gateway's websocket URL.
func NormalizeEndpoint(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid socket endpoint %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid socket endpoint %q: unsupported scheme", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid socket endpoint %q: missing host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}
