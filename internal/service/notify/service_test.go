package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"oceancare/internal/alert"
	"oceancare/internal/domain"
	"oceancare/internal/model"
	"oceancare/internal/socket"
	"oceancare/internal/socket/sockettest"
	"oceancare/internal/store/memory"
)

type repoMock struct {
	mock.Mock
}

func (m *repoMock) Record(input model.NotificationInput) model.Notification {
	args := m.Called(input)
	return args.Get(0).(model.Notification)
}

func (m *repoMock) MarkAsRead(id int64) { m.Called(id) }
func (m *repoMock) MarkAllAsRead()      { m.Called() }
func (m *repoMock) Clear()              { m.Called() }

func (m *repoMock) List() []model.Notification {
	args := m.Called()
	return args.Get(0).([]model.Notification)
}

func (m *repoMock) Get(id int64) (model.Notification, bool) {
	args := m.Called(id)
	return args.Get(0).(model.Notification), args.Bool(1)
}

func (m *repoMock) UnreadCount() int {
	args := m.Called()
	return args.Int(0)
}

type alerterMock struct {
	mock.Mock
}

func (m *alerterMock) Alert(ctx context.Context, a alert.Alert) {
	m.Called(ctx, a)
}

func frame(t *testing.T, event string, data any) model.Frame {
	t.Helper()
	f, err := model.NewFrame(event, data)
	require.NoError(t, err)
	return f
}

func TestServiceHandle(t *testing.T) {
	t.Run("unrecognized event is a no-op", func(t *testing.T) {
		repo := &repoMock{}
		alerts := &alerterMock{}
		svc := NewService(repo, alerts, zap.NewNop())

		_, ok := svc.Handle(frame(t, "unknown-event", map[string]any{"message": "hi"}))
		require.False(t, ok)
		repo.AssertNotCalled(t, "Record", mock.Anything)
		alerts.AssertNotCalled(t, "Alert", mock.Anything, mock.Anything)
	})

	t.Run("status update keeps whole body", func(t *testing.T) {
		store := memory.New(zap.NewNop())
		alerts := &alerterMock{}
		alerts.On("Alert", mock.Anything, mock.MatchedBy(func(a alert.Alert) bool {
			return a.Kind == domain.EventStatusUpdate &&
				a.Title == "Registration Status" &&
				a.Body == "Your booking was accepted" &&
				a.Icon == "✅" &&
				!a.RequireInteraction
		})).Once()
		svc := NewService(store, alerts, zap.NewNop())

		created, ok := svc.Handle(frame(t, domain.EventNameStatusUpdate, map[string]any{
			"registrationId": "r1",
			"status":         "ACCEPTED",
			"message":        "Your booking was accepted",
		}))
		require.True(t, ok)
		require.Equal(t, domain.NotificationTypeStatusUpdate, created.Type)
		require.Equal(t, "Your booking was accepted", created.Message)
		require.False(t, created.Read)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(created.Payload, &payload))
		require.Equal(t, "r1", payload["registrationId"])
		require.Equal(t, "ACCEPTED", payload["status"])
		require.Equal(t, 1, store.UnreadCount())
		alerts.AssertExpectations(t)
	})

	t.Run("new registration keeps nested data", func(t *testing.T) {
		store := memory.New(zap.NewNop())
		alerts := &alerterMock{}
		alerts.On("Alert", mock.Anything, mock.Anything).Once()
		svc := NewService(store, alerts, zap.NewNop())

		created, ok := svc.Handle(frame(t, domain.EventNameNewRegistration, map[string]any{
			"message": "New booking from Budi",
			"data":    map[string]any{"registrationId": 7, "patientName": "Budi"},
		}))
		require.True(t, ok)
		require.Equal(t, domain.NotificationTypeNewRegistration, created.Type)
		require.JSONEq(t, `{"registrationId":7,"patientName":"Budi"}`, string(created.Payload))
		alerts.AssertExpectations(t)
	})

	t.Run("queue call requires interaction", func(t *testing.T) {
		store := memory.New(zap.NewNop())
		alerts := &alerterMock{}
		alerts.On("Alert", mock.Anything, mock.MatchedBy(func(a alert.Alert) bool {
			return a.RequireInteraction && a.Icon == "🔔"
		})).Once()
		svc := NewService(store, alerts, zap.NewNop())

		created, ok := svc.Handle(frame(t, domain.EventNameQueueCalled, map[string]any{
			"message": "Queue A-12 please proceed",
		}))
		require.True(t, ok)
		require.Equal(t, domain.NotificationTypeQueueCall, created.Type)
		alerts.AssertExpectations(t)
	})

	t.Run("non-object body is still recorded", func(t *testing.T) {
		store := memory.New(zap.NewNop())
		alerts := &alerterMock{}
		alerts.On("Alert", mock.Anything, mock.Anything).Once()
		svc := NewService(store, alerts, zap.NewNop())

		created, ok := svc.Handle(frame(t, domain.EventNameQueueCalled, "A-12"))
		require.True(t, ok)
		require.Equal(t, `"A-12"`, string(created.Payload))
		require.Equal(t, 1, store.UnreadCount())
	})

	t.Run("denied desktop permission does not block the record", func(t *testing.T) {
		store := memory.New(zap.NewNop())
		desktop := alert.NewDesktopWithRunner(true, func(context.Context, string, ...string) error {
			t.Fatalf("desktop alert must not run")
			return nil
		}, func(string) (string, error) { return "", context.Canceled }, zap.NewNop())
		desktop.RequestPermission(context.Background())
		svc := NewService(store, desktop, zap.NewNop())

		_, ok := svc.Handle(frame(t, domain.EventNameQueueCalled, map[string]any{"message": "A-1"}))
		require.True(t, ok)
		require.Equal(t, 1, store.UnreadCount())
	})
}

func TestServiceSubscribe(t *testing.T) {
	dialer := &sockettest.Dialer{}
	conn := dialer.QueueConn()
	manager := socket.NewManager(dialer, socket.Options{ReconnectAttempts: 1, ReconnectDelay: 10 * time.Millisecond}, zap.NewNop())
	defer manager.Close()

	store := memory.New(zap.NewNop())
	svc := NewService(store, alert.Multi{}, zap.NewNop())
	subs := svc.Subscribe(manager)
	require.Len(t, subs, 3)

	manager.Connect(context.Background(), "ws://gateway/ws")
	require.Eventually(t, manager.Connected, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Deliver("unknown-event", map[string]any{"message": "ignored"}))
	require.NoError(t, conn.Deliver(domain.EventNameQueueCalled, map[string]any{"message": "A-1"}))
	require.Eventually(t, func() bool { return store.UnreadCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, store.List(), 1)

	Unsubscribe(manager, subs)
	require.NoError(t, conn.Deliver(domain.EventNameQueueCalled, map[string]any{"message": "A-2"}))
	require.NoError(t, conn.Deliver("marker", nil))
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, store.UnreadCount())
}
