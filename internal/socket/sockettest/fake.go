// Package sockettest provides an in-memory transport for exercising the
// socket manager and its consumers without a gateway.
package sockettest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"oceancare/internal/model"
	"oceancare/internal/socket"
)

var (
	ErrNoConnQueued = errors.New("sockettest: no connection queued")
	ErrClosed       = errors.New("sockettest: connection closed")
)

// Conn is one fake server-side connection. Pings and read deadlines behave
// like a websocket: a ping runs the OnPing handler inside ReadJSON, and a read
// that outlives the deadline fails with os.ErrDeadlineExceeded.
type Conn struct {
	in       chan model.Frame
	pings    chan struct{}
	closed   chan struct{}
	once     sync.Once
	mu       sync.Mutex
	written  []model.Frame
	deadline time.Time
	onPing   func()
}

var _ socket.Conn = (*Conn)(nil)

func NewConn() *Conn {
	return &Conn{
		in:     make(chan model.Frame, 64),
		pings:  make(chan struct{}, 64),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ReadJSON(v any) error {
	target, ok := v.(*model.Frame)
	if !ok {
		return fmt.Errorf("sockettest: unexpected read target %T", v)
	}
	for {
		select {
		case <-c.closed:
			return io.EOF
		default:
		}
		pinged, err := c.readOnce(target)
		if !pinged {
			return err
		}
	}
}

// readOnce waits for a frame, a ping, the deadline or close. It reports
// pinged after running the ping handler so the caller reads again.
func (c *Conn) readOnce(target *model.Frame) (bool, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case frame := <-c.in:
		*target = frame
		return false, nil
	case <-c.pings:
		c.mu.Lock()
		fn := c.onPing
		c.mu.Unlock()
		if fn != nil {
			fn()
		}
		return true, nil
	case <-expired:
		return false, os.ErrDeadlineExceeded
	case <-c.closed:
		return false, io.EOF
	}
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = t
	return nil
}

func (c *Conn) OnPing(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPing = fn
}

// Ping sends a heartbeat ping to the client.
func (c *Conn) Ping() error {
	select {
	case c.pings <- struct{}{}:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

func (c *Conn) WriteJSON(v any) error {
	frame, ok := v.(model.Frame)
	if !ok {
		return fmt.Errorf("sockettest: unexpected write value %T", v)
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, frame)
	return nil
}

func (c *Conn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Deliver pushes a server frame to the client.
func (c *Conn) Deliver(event string, data any) error {
	frame, err := model.NewFrame(event, data)
	if err != nil {
		return err
	}
	select {
	case c.in <- frame:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

func (c *Conn) Written() []model.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Frame, len(c.written))
	copy(out, c.written)
	return out
}

// Rooms returns the room argument of every frame written with the given
// control event, in order.
func (c *Conn) Rooms(event string) []string {
	var rooms []string
	for _, frame := range c.Written() {
		if frame.Event != event {
			continue
		}
		var room string
		if err := json.Unmarshal(frame.Data, &room); err == nil {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

func (c *Conn) Joins() []string {
	return c.Rooms(model.EventJoinRoom)
}

func (c *Conn) Leaves() []string {
	return c.Rooms(model.EventLeaveRoom)
}

type dialResult struct {
	conn *Conn
	err  error
}

// Dialer hands out queued connections in order and fails once the queue is
// empty.
type Dialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   int
}

var _ socket.Dialer = (*Dialer)(nil)

func (d *Dialer) QueueConn() *Conn {
	conn := NewConn()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, dialResult{conn: conn})
	return conn
}

func (d *Dialer) QueueError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, dialResult{err: err})
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *Dialer) Dial(ctx context.Context, _ string) (socket.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.results) == 0 {
		return nil, ErrNoConnQueued
	}
	next := d.results[0]
	d.results = d.results[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.conn, nil
}
