package rabbitmq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"oceancare/internal/config"
	"oceancare/internal/queue"
)

func TestNewPublisherWithoutBroker(t *testing.T) {
	pub := NewPublisher(&config.Config{}, zap.NewNop())
	err := pub.Publish(context.Background(), []byte(`{}`), "event.queue-called")
	require.ErrorIs(t, err, ErrPublisherDisabled)
}

func TestRoutingKey(t *testing.T) {
	require.Equal(t, "event.queue-called", queue.RoutingKey("", "queue-called"))
	require.Equal(t, "clinic.new-registration", queue.RoutingKey("clinic", "new-registration"))
}
