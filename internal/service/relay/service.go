package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"oceancare/internal/domain"
	"oceancare/internal/model"
)

// Broadcaster delivers a frame to every member of a room.
type Broadcaster interface {
	Broadcast(room string, frame model.Frame)
}

// Service validates room events from the backend and hands them to the hub.
type Service struct {
	hub Broadcaster
	log *zap.Logger
}

func NewService(hub Broadcaster, logger *zap.Logger) *Service {
	return &Service{hub: hub, log: logger}
}

func (s *Service) Broadcast(ctx context.Context, e model.RoomEvent) error {
	_, span := otel.Tracer("relay").Start(ctx, "relay.broadcast")
	span.SetAttributes(
		attribute.String("oceancare.room", e.Room),
		attribute.String("oceancare.event", e.Event),
	)
	defer span.End()

	if err := Validate(e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid event")
		return err
	}
	frame, err := e.Frame()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return fmt.Errorf("encode frame: %w", err)
	}
	s.hub.Broadcast(e.Room, frame)
	s.log.Info("event broadcast",
		zap.String("room", e.Room),
		zap.String("event", e.Event),
	)
	return nil
}

// registrationData accepts both the flattened event payload and the
// registration record the clinic backend sends as-is (id, pasien.name).
type registrationData struct {
	RegistrationID json.RawMessage `json:"registrationId"`
	ID             json.RawMessage `json:"id"`
	PatientName    string          `json:"patientName"`
	Patient        struct {
		Name string `json:"name"`
	} `json:"pasien"`
	Status string `json:"status"`
}

func (d registrationData) registrationID() json.RawMessage {
	if present(d.RegistrationID) {
		return d.RegistrationID
	}
	return d.ID
}

func (d registrationData) patientName() string {
	if name := strings.TrimSpace(d.PatientName); name != "" {
		return name
	}
	return strings.TrimSpace(d.Patient.Name)
}

// Validate checks the room, the event name and the fields each event needs.
func Validate(e model.RoomEvent) error {
	if !domain.IsValidRoom(e.Room) {
		return fmt.Errorf("room %q: %w", e.Room, domain.ErrInvalidRoom)
	}
	kind := domain.ParseEventKind(e.Event)
	if !kind.Known() {
		return fmt.Errorf("event %q: %w", e.Event, domain.ErrUnknownEvent)
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("message: %w", domain.ErrMissingField)
	}
	if kind == domain.EventQueueCalled {
		return nil
	}

	var data registrationData
	if len(e.Data) > 0 {
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return fmt.Errorf("data: %w", domain.ErrMissingField)
		}
	}
	if !present(data.registrationID()) {
		return fmt.Errorf("data.registrationId: %w", domain.ErrMissingField)
	}
	switch kind {
	case domain.EventNewRegistration:
		if data.patientName() == "" {
			return fmt.Errorf("data.patientName: %w", domain.ErrMissingField)
		}
	case domain.EventStatusUpdate:
		if data.Status == "" {
			return fmt.Errorf("data.status: %w", domain.ErrMissingField)
		}
		if !domain.IsValidRegistrationStatus(data.Status) {
			return fmt.Errorf("data.status %q: %w", data.Status, domain.ErrInvalidStatus)
		}
	}
	return nil
}

func present(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	return v != "" && v != "null" && v != `""`
}
