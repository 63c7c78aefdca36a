package testutil

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

// StartRabbitMQ returns a connection to a fresh broker, dialed the way the
// service dials it.
func StartRabbitMQ(t *testing.T) *amqp.Connection {
	t.Helper()

	addr := start(t, service{
		image: "rabbitmq:3.13-alpine",
		port:  "5672/tcp",
		ready: wait.ForListeningPort("5672/tcp").WithStartupTimeout(startupTimeout),
	})

	conn, err := events.DialRabbit("amqp://guest:guest@" + addr + "/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}
