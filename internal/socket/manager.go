package socket

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"oceancare/internal/model"
)

const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	// DefaultReadTimeout is twice the gateway's default heartbeat.
	DefaultReadTimeout = 30 * time.Second
)

type Options struct {
	// ReconnectAttempts is the number of consecutive failed dials after which
	// the manager stops retrying.
	ReconnectAttempts int
	// ReconnectDelay is the fixed pause between two dials.
	ReconnectDelay time.Duration
	// ReadTimeout is how long the connection may stay silent, pings
	// included, before it is treated as dead and redialed.
	ReadTimeout time.Duration
}

// Subscription identifies one handler registered with On.
type Subscription struct {
	event string
	fn    func(model.Frame)
}

func (s *Subscription) Event() string {
	return s.event
}

// Manager owns the session's single socket connection. Room joins requested
// while disconnected are kept and sent on the next successful connect, and
// every wanted room is re-joined after a reconnect.
type Manager struct {
	dialer Dialer
	opts   Options
	log    *zap.Logger

	mu        sync.Mutex
	conn      Conn
	connected bool
	socketID  string
	rooms     map[string]bool // wanted rooms, true once joined on conn
	subs      map[string][]*Subscription
	watchers  map[int]func(bool)
	nextWatch int
	cancel    context.CancelFunc
	done      chan struct{}

	writeMu sync.Mutex
}

func NewManager(dialer Dialer, opts Options, logger *zap.Logger) *Manager {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = DefaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	return &Manager{
		dialer:   dialer,
		opts:     opts,
		log:      logger,
		rooms:    make(map[string]bool),
		subs:     make(map[string][]*Subscription),
		watchers: make(map[int]func(bool)),
	}
}

// Connect starts the connection loop. It is a no-op while a loop is running;
// once reconnect attempts are exhausted, calling it again retries.
func (m *Manager) Connect(ctx context.Context, endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		select {
		case <-m.done:
		default:
			return
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.run(runCtx, endpoint, done)
}

// Close stops the connection loop and waits for it to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current connection loop exits, either through
// Close or because reconnect attempts ran out.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return m.done
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Manager) SocketID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.socketID
}

// JoinedRooms lists the rooms joined on the current connection.
func (m *Manager) JoinedRooms() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rooms []string
	for room, joined := range m.rooms {
		if joined {
			rooms = append(rooms, room)
		}
	}
	sort.Strings(rooms)
	return rooms
}

func (m *Manager) JoinRoom(room string) {
	m.mu.Lock()
	if _, ok := m.rooms[room]; !ok {
		m.rooms[room] = false
	}
	if !m.connected {
		m.mu.Unlock()
		m.log.Debug("room join queued until connected", zap.String("room", room))
		return
	}
	if m.rooms[room] {
		m.mu.Unlock()
		return
	}
	m.rooms[room] = true
	conn := m.conn
	m.mu.Unlock()

	m.send(conn, model.EventJoinRoom, room)
	m.log.Info("joined room", zap.String("room", room))
}

func (m *Manager) LeaveRoom(room string) {
	m.mu.Lock()
	joined, ok := m.rooms[room]
	delete(m.rooms, room)
	conn := m.conn
	connected := m.connected
	m.mu.Unlock()

	if !ok || !joined || !connected {
		return
	}
	m.send(conn, model.EventLeaveRoom, room)
	m.log.Info("left room", zap.String("room", room))
}

func (m *Manager) Emit(event string, data any) {
	m.mu.Lock()
	conn, connected := m.conn, m.connected
	m.mu.Unlock()
	if !connected {
		m.log.Debug("emit dropped while disconnected", zap.String("event", event))
		return
	}
	m.send(conn, event, data)
}

func (m *Manager) On(event string, fn func(model.Frame)) *Subscription {
	sub := &Subscription{event: event, fn: fn}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[event] = append(m.subs[event], sub)
	return sub
}

func (m *Manager) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[sub.event]
	i := slices.Index(list, sub)
	if i < 0 {
		return
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(m.subs, sub.event)
		return
	}
	m.subs[sub.event] = list
}

// OnStateChange registers fn to be called with the new connectivity on every
// connect and disconnect. The returned func unregisters it.
func (m *Manager) OnStateChange(fn func(connected bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextWatch
	m.nextWatch++
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, id)
	}
}

func (m *Manager) run(ctx context.Context, endpoint string, done chan struct{}) {
	defer close(done)
	failures := 0
	for {
		conn, err := m.dialer.Dial(ctx, endpoint)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			m.log.Warn("socket connect failed",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", failures),
				zap.Error(err),
			)
			if failures >= m.opts.ReconnectAttempts {
				m.log.Error("socket reconnect attempts exhausted",
					zap.String("endpoint", endpoint),
					zap.Int("attempts", failures),
				)
				return
			}
			if !sleep(ctx, m.opts.ReconnectDelay) {
				return
			}
			continue
		}

		failures = 0
		m.attach(conn)
		err = m.readLoop(ctx, conn)
		m.detach(conn)
		if ctx.Err() != nil {
			return
		}
		m.log.Warn("socket disconnected", zap.String("endpoint", endpoint), zap.Error(err))
		if !sleep(ctx, m.opts.ReconnectDelay) {
			return
		}
	}
}

func (m *Manager) attach(conn Conn) {
	m.mu.Lock()
	m.conn = conn
	m.connected = true
	m.socketID = ""
	var pending []string
	for room, joined := range m.rooms {
		if !joined {
			m.rooms[room] = true
			pending = append(pending, room)
		}
	}
	watchers := m.watcherList()
	m.mu.Unlock()

	sort.Strings(pending)
	m.log.Info("socket connected", zap.Strings("rejoin", pending))
	for _, room := range pending {
		m.send(conn, model.EventJoinRoom, room)
	}
	for _, fn := range watchers {
		fn(true)
	}
}

func (m *Manager) detach(conn Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.connected = false
		m.socketID = ""
		for room := range m.rooms {
			m.rooms[room] = false
		}
	}
	watchers := m.watcherList()
	m.mu.Unlock()

	_ = conn.Close()
	for _, fn := range watchers {
		fn(false)
	}
}

func (m *Manager) watcherList() []func(bool) {
	ids := make([]int, 0, len(m.watchers))
	for id := range m.watchers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(bool), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.watchers[id])
	}
	return fns
}

func (m *Manager) readLoop(ctx context.Context, conn Conn) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	extend := func() {
		_ = conn.SetReadDeadline(time.Now().Add(m.opts.ReadTimeout))
	}
	conn.OnPing(extend)
	extend()

	for {
		var frame model.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if isDecodeError(err) {
				extend()
				m.log.Warn("socket frame dropped", zap.Error(err))
				continue
			}
			return err
		}
		extend()
		if frame.Event == model.EventConnect {
			var data model.ConnectData
			if err := json.Unmarshal(frame.Data, &data); err == nil {
				m.mu.Lock()
				m.socketID = data.SocketID
				m.mu.Unlock()
				m.log.Info("socket session established", zap.String("socket_id", data.SocketID))
			}
		}
		m.dispatch(frame)
	}
}

func (m *Manager) dispatch(frame model.Frame) {
	m.mu.Lock()
	subs := slices.Clone(m.subs[frame.Event])
	m.mu.Unlock()

	for _, sub := range subs {
		m.invoke(sub, frame)
	}
}

func (m *Manager) invoke(sub *Subscription, frame model.Frame) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("socket handler panicked", zap.String("event", frame.Event), zap.Any("error", r))
		}
	}()
	sub.fn(frame)
}

func (m *Manager) send(conn Conn, event string, data any) {
	frame, err := model.NewFrame(event, data)
	if err != nil {
		m.log.Warn("socket frame encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	m.writeMu.Lock()
	err = conn.WriteJSON(frame)
	m.writeMu.Unlock()
	if err != nil {
		m.log.Warn("socket write failed", zap.String("event", event), zap.Error(err))
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
