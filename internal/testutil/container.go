// Package testutil starts the backing services the integration tests run
// against. Containers are terminated on t.Cleanup.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 90 * time.Second

type service struct {
	image string
	port  string // the single exposed port, e.g. "5432/tcp"
	env   map[string]string
	ready wait.Strategy
}

// start runs svc and returns the host:port its exposed port is mapped to.
func start(t *testing.T, svc service) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        svc.image,
			ExposedPorts: []string{svc.port},
			Env:          svc.env,
			WaitingFor:   svc.ready,
		},
		Started: true,
	})
	require.NoError(t, err, "start %s", svc.image)

	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		_ = container.Terminate(stopCtx)
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}
