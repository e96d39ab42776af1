package session

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"oceancare/internal/alert"
	"oceancare/internal/model"
	"oceancare/internal/rooms"
	"oceancare/internal/service/notify"
	"oceancare/internal/socket"
	"oceancare/internal/store/memory"
)

const (
	IndicatorActive       = "Real-time Active"
	IndicatorDisconnected = "Disconnected"
)

type Deps struct {
	Endpoint       string
	Dialer         socket.Dialer
	Socket         socket.Options
	Alerter        alert.Alerter
	Desktop        *alert.Desktop
	AlertQueueSize int
	Logger         *zap.Logger
}

// Session is everything the realtime layer holds for one logged-in identity.
// It is built by Open on login and released by Close on logout.
type Session struct {
	identity model.Identity
	manager  *socket.Manager
	policy   *rooms.Policy
	store    *memory.Store
	alerts   *alert.Queue
	subs     []*socket.Subscription
	unwatch  func()
	log      *zap.Logger

	closeOnce sync.Once
}

func Open(ctx context.Context, identity model.Identity, deps Deps) (*Session, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger.With(zap.String("user_id", identity.ID), zap.String("role", string(identity.Role)))

	alerter := deps.Alerter
	if alerter == nil {
		alerter = alert.NewToast(logger)
	}
	queue := alert.NewQueue(alerter, deps.AlertQueueSize, logger)
	queue.Start(ctx)

	manager := socket.NewManager(deps.Dialer, deps.Socket, logger)
	store := memory.New(logger)
	svc := notify.NewService(store, queue, logger)
	policy := rooms.NewPolicy(manager, logger)

	s := &Session{
		identity: identity,
		manager:  manager,
		policy:   policy,
		store:    store,
		alerts:   queue,
		log:      logger,
	}
	s.subs = svc.Subscribe(manager)
	s.unwatch = manager.OnStateChange(s.handleConnectivity)

	if deps.Desktop != nil {
		go deps.Desktop.RequestPermission(ctx)
	}
	if err := policy.SetIdentity(&identity); err != nil {
		s.Close()
		return nil, err
	}
	manager.Connect(ctx, deps.Endpoint)
	logger.Info("session opened", zap.String("endpoint", deps.Endpoint))
	return s, nil
}

func (s *Session) handleConnectivity(connected bool) {
	s.policy.HandleConnectivity(connected)
	s.log.Info("realtime status", zap.String("indicator", indicator(connected)))
}

// Close leaves the session's room and tears the connection down.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.policy.Release()
		notify.Unsubscribe(s.manager, s.subs)
		if s.unwatch != nil {
			s.unwatch()
		}
		s.manager.Close()
		s.alerts.Stop()
		s.log.Info("session closed")
	})
}

func (s *Session) Identity() model.Identity {
	return s.identity
}

func (s *Session) Connected() bool {
	return s.manager.Connected()
}

func (s *Session) SocketID() string {
	return s.manager.SocketID()
}

// Indicator is the connectivity label shown to the user.
func (s *Session) Indicator() string {
	return indicator(s.manager.Connected())
}

func (s *Session) Membership() rooms.State {
	return s.policy.State()
}

func (s *Session) Notifications() []model.Notification {
	return s.store.List()
}

func (s *Session) UnreadCount() int {
	return s.store.UnreadCount()
}

func (s *Session) MarkAsRead(id int64) {
	s.store.MarkAsRead(id)
}

func (s *Session) MarkAllAsRead() {
	s.store.MarkAllAsRead()
}

func (s *Session) Clear() {
	s.store.Clear()
}

// Reconnect restarts the connection loop after reconnect attempts ran out.
func (s *Session) Reconnect(ctx context.Context, endpoint string) {
	s.manager.Connect(ctx, endpoint)
}

func indicator(connected bool) string {
	if connected {
		return IndicatorActive
	}
	return IndicatorDisconnected
}
