package dto

import (
	"encoding/json"

	"oceancare/internal/model"
)

// EventRequest is the body of POST /events and POST /events/publish.
type EventRequest struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (r EventRequest) RoomEvent() model.RoomEvent {
	return model.RoomEvent{
		Room:    r.Room,
		Event:   r.Event,
		Message: r.Message,
		Data:    r.Data,
	}
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
