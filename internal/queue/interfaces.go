package queue

import (
	"context"

	"oceancare/internal/model"
)

type Consumer interface {
	Start(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, payload []byte, routingKey string) error
}

// Relay is where consumed room events end up.
type Relay interface {
	Broadcast(ctx context.Context, e model.RoomEvent) error
}

// RoutingKey builds the topic key a room event is published under, for
// example "event.queue-called".
func RoutingKey(prefix, event string) string {
	if prefix == "" {
		prefix = "event"
	}
	return prefix + "." + event
}
