package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"oceancare/internal/alert"
	"oceancare/internal/domain"
	"oceancare/internal/model"
	"oceancare/internal/repository"
	"oceancare/internal/socket"
)

// EventSource is the subscribe side of the socket manager.
type EventSource interface {
	On(event string, fn func(model.Frame)) *socket.Subscription
	Off(sub *socket.Subscription)
}

// Service turns inbound room events into notifications and local alerts.
type Service struct {
	store   repository.NotificationRepository
	alerter alert.Alerter
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store repository.NotificationRepository, alerter alert.Alerter, logger *zap.Logger) *Service {
	return &Service{store: store, alerter: alerter, log: logger, now: time.Now}
}

var recognizedEvents = []string{
	domain.EventNameNewRegistration,
	domain.EventNameStatusUpdate,
	domain.EventNameQueueCalled,
}

// Subscribe registers the service for every recognized event and returns the
// subscriptions so the caller can remove them on logout.
func (s *Service) Subscribe(source EventSource) []*socket.Subscription {
	subs := make([]*socket.Subscription, 0, len(recognizedEvents))
	for _, name := range recognizedEvents {
		subs = append(subs, source.On(name, func(frame model.Frame) {
			s.Handle(frame)
		}))
	}
	return subs
}

func Unsubscribe(source EventSource, subs []*socket.Subscription) {
	for _, sub := range subs {
		source.Off(sub)
	}
}

// Handle records a notification for a recognized event. Unrecognized events
// are ignored and reported as not handled.
func (s *Service) Handle(frame model.Frame) (model.Notification, bool) {
	kind := domain.ParseEventKind(frame.Event)
	if !kind.Known() {
		s.log.Debug("ignoring unrecognized event", zap.String("event", frame.Event))
		return model.Notification{}, false
	}

	input := s.normalize(kind, frame)
	created := s.store.Record(input)

	s.alerter.Alert(context.Background(), alert.Alert{
		Kind:               kind,
		Title:              kind.AlertTitle(),
		Body:               created.Message,
		Icon:               created.Type.Icon(),
		RequireInteraction: kind.RequiresInteraction(),
	})
	s.log.Info("notification received",
		zap.Int64("id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("message", created.Message),
	)
	return created, true
}

func (s *Service) normalize(kind domain.EventKind, frame model.Frame) model.NotificationInput {
	input := model.NotificationInput{
		Type:      kind.NotificationType(),
		Timestamp: s.now().UTC(),
	}

	var body model.EventBody
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &body); err != nil {
			s.log.Warn("event body is not an object",
				zap.String("event", frame.Event),
				zap.Error(err),
			)
			input.Payload = frame.Data
			return input
		}
	}
	input.Message = body.Message
	if input.Message == "" {
		s.log.Warn("event without message", zap.String("event", frame.Event))
	}

	// Status updates keep the whole body: registrationId and status sit next
	// to the message rather than under data.
	if kind == domain.EventStatusUpdate {
		input.Payload = frame.Data
		s.checkStatusUpdate(frame.Data)
	} else {
		input.Payload = body.Data
	}
	return input
}

func (s *Service) checkStatusUpdate(raw json.RawMessage) {
	var fields struct {
		RegistrationID json.RawMessage `json:"registrationId"`
		ID             json.RawMessage `json:"id"`
		Status         string          `json:"status"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}
	if len(fields.RegistrationID) == 0 {
		fields.RegistrationID = fields.ID
	}
	if len(fields.RegistrationID) == 0 || !domain.IsValidRegistrationStatus(fields.Status) {
		s.log.Warn("status update with incomplete fields",
			zap.ByteString("registration_id", fields.RegistrationID),
			zap.String("status", fields.Status),
		)
	}
}
