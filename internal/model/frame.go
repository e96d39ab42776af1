package model

import (
	"encoding/json"

	"oceancare/internal/domain"
)

// Control frames exchanged with the gateway.
const (
	EventConnect   = "connect"
	EventJoinRoom  = "join-room"
	EventLeaveRoom = "leave-room"
)

// Frame is the unit sent over the socket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewFrame(event string, data any) (Frame, error) {
	if data == nil {
		return Frame{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

type ConnectData struct {
	SocketID string `json:"socketId"`
}

// EventBody is the shape of a domain event's data on the wire. Extra keys
// (registrationId, status on status updates) are kept in the raw frame.
type EventBody struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RoomEvent is a domain event addressed to one room, as accepted by the
// gateway over HTTP and RabbitMQ.
type RoomEvent struct {
	Room    string          `json:"room"`
	Event   string          `json:"event"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Frame renders the event as the frame delivered to room members. Status
// updates carry registrationId and status at the top level as well, which
// is what patient clients read.
func (e RoomEvent) Frame() (Frame, error) {
	body := map[string]any{"message": e.Message}
	if len(e.Data) > 0 {
		body["data"] = e.Data
		if e.Event == domain.EventNameStatusUpdate {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(e.Data, &fields); err == nil {
				for k, v := range fields {
					if k == "message" || k == "data" {
						continue
					}
					body[k] = v
				}
			}
		}
	}
	return NewFrame(e.Event, body)
}
