//go:build integration

package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const amqpPort = nat.Port("5672/tcp")

// setupRabbitMQContainer starts a throwaway broker and returns its AMQP URL.
func setupRabbitMQContainer(t require.TestingT, ctx context.Context) (string, func()) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.12-alpine",
			ExposedPorts: []string{string(amqpPort)},
			WaitingFor:   wait.ForListeningPort(amqpPort).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, amqpPort)
	require.NoError(t, err)

	amqpURL := fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
	return amqpURL, func() { _ = container.Terminate(ctx) }
}
