package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live connection to the event channel.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// Dialer opens connections to the event channel.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// The event channel is a socket.io server. Only the websocket transport of
// Engine.IO v4 is spoken; there is no long-polling fallback.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'

	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'

	socketPath = "/socket.io/"
)

// ErrConnectRefused is returned by Dial when the server rejects the namespace.
var ErrConnectRefused = errors.New("feed: namespace connect refused")

// SocketDialer connects to the socket.io endpoint of the API.
type SocketDialer struct {
	URL    string
	Header http.Header
	dialer *websocket.Dialer
}

// NewSocketDialer validates the channel address. A bare origin gets the default
// socket.io path and the Engine.IO query appended; http and https are mapped to
// ws and wss.
func NewSocketDialer(rawURL string, handshakeTimeout time.Duration) (*SocketDialer, error) {
	endpoint, err := SocketURL(rawURL)
	if err != nil {
		return nil, err
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &SocketDialer{
		URL: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}, nil
}

// SocketURL returns the websocket transport address for a socket.io server.
func SocketURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("feed: parse url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.New("feed: url must use ws, wss, http or https")
	}
	if u.Host == "" {
		return "", errors.New("feed: url has no host")
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = socketPath
	}
	q := u.Query()
	if q.Get("EIO") == "" {
		q.Set("EIO", "4")
	}
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *SocketDialer) Dial(ctx context.Context) (Conn, error) {
	ws, resp, err := d.dialer.DialContext(ctx, d.URL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("feed: dial %s: status %d: %w", d.URL, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("feed: dial %s: %w", d.URL, err)
	}
	conn := &socketConn{ws: ws}
	if err := conn.handshake(ctx); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return conn, nil
}

type socketConn struct {
	ws      *websocket.Conn
	timeout time.Duration

	wmu sync.Mutex
}

type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// handshake reads the Engine.IO open packet and joins the default namespace.
func (c *socketConn) handshake(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
	}
	msg, err := c.read()
	if err != nil {
		return fmt.Errorf("feed: handshake: %w", err)
	}
	if len(msg) == 0 || msg[0] != engineOpen {
		return fmt.Errorf("feed: handshake: unexpected packet %q", msg)
	}
	var open openPacket
	if err := json.Unmarshal(msg[1:], &open); err != nil {
		return fmt.Errorf("feed: handshake: %w", err)
	}
	if open.PingInterval > 0 {
		c.timeout = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	}

	if err := c.write(string(engineMessage) + string(socketConnect)); err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	for {
		msg, err := c.read()
		if err != nil {
			return fmt.Errorf("feed: connect: %w", err)
		}
		if len(msg) > 0 && msg[0] == enginePing {
			if err := c.write(string(enginePong) + string(msg[1:])); err != nil {
				return err
			}
			continue
		}
		if len(msg) < 2 || msg[0] != engineMessage {
			continue
		}
		switch msg[1] {
		case socketConnect:
			return c.ws.SetReadDeadline(time.Time{})
		case socketConnectError:
			return fmt.Errorf("%w: %s", ErrConnectRefused, msg[2:])
		}
	}
}

// WriteJSON emits v, which must be a Frame, as a socket.io event.
func (c *socketConn) WriteJSON(v any) error {
	var f Frame
	switch t := v.(type) {
	case Frame:
		f = t
	case *Frame:
		f = *t
	default:
		return fmt.Errorf("feed: cannot emit %T", v)
	}
	args := []any{f.Event}
	if len(f.Data) > 0 {
		args = append(args, f.Data)
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return c.write(string(engineMessage) + string(socketEvent) + string(payload))
}

// ReadJSON blocks until the next event and stores it in v, a *Frame. Pings are
// answered on the way. A server disconnect reads as io.EOF.
func (c *socketConn) ReadJSON(v any) error {
	f, ok := v.(*Frame)
	if !ok {
		return fmt.Errorf("feed: cannot decode into %T", v)
	}
	for {
		if c.timeout > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.timeout))
		}
		msg, err := c.read()
		if err != nil {
			return err
		}
		if len(msg) == 0 {
			continue
		}
		switch msg[0] {
		case enginePing:
			if err := c.write(string(enginePong) + string(msg[1:])); err != nil {
				return err
			}
		case engineClose:
			return io.EOF
		case engineNoop:
		case engineMessage:
			if len(msg) < 2 {
				continue
			}
			switch msg[1] {
			case socketDisconnect:
				return io.EOF
			case socketEvent:
				event, data, err := decodeEvent(msg[2:])
				if err != nil {
					return err
				}
				*f = Frame{Event: event, Data: data}
				return nil
			}
		}
	}
}

func (c *socketConn) Close() error {
	c.wmu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.ws.Close()
}

func (c *socketConn) read() ([]byte, error) {
	for {
		kind, msg, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage {
			return msg, nil
		}
	}
}

func (c *socketConn) write(packet string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(packet))
}

// decodeEvent parses the body of an event packet: an optional namespace, an
// optional ack id, then the JSON array ["event", data].
func decodeEvent(body []byte) (string, json.RawMessage, error) {
	if len(body) > 0 && body[0] == '/' {
		i := strings.IndexByte(string(body), ',')
		if i < 0 {
			return "", nil, fmt.Errorf("feed: malformed event %q", body)
		}
		body = body[i+1:]
	}
	for len(body) > 0 && body[0] >= '0' && body[0] <= '9' {
		body = body[1:]
	}
	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil {
		return "", nil, fmt.Errorf("feed: malformed event: %w", err)
	}
	if len(args) == 0 {
		return "", nil, errors.New("feed: event without name")
	}
	var event string
	if err := json.Unmarshal(args[0], &event); err != nil {
		return "", nil, fmt.Errorf("feed: event name: %w", err)
	}
	var data json.RawMessage
	if len(args) > 1 {
		data = args[1]
	}
	return event, data, nil
}
