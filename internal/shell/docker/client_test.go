package docker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func skipIfNoDocker(t *testing.T) Client {
	t.Helper()
	cli, err := NewDockerClient("")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	if err := cli.Ping(context.Background()); err != nil {
		cli.Close()
		t.Skip("Docker not reachable:", err)
	}
	return cli
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestNewDockerClient_Success(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	assert.NotNil(t, cli)
}

func TestListContainers_ProjectFilter(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	// An unused project label must match nothing.
	containers, err := cli.ListContainers(context.Background(), ListOptions{
		All: true,
		Filters: map[string]string{
			"label": LabelComposeProject + "=modelstack-test-no-such-project",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, containers)
}

func TestInspectContainer_NotFound(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	_, err := cli.InspectContainer(context.Background(), "modelstack-test-no-such-container")
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

func TestContainerLogs_NotFound(t *testing.T) {
	cli := skipIfNoDocker(t)
	defer cli.Close()

	_, err := cli.ContainerLogs(context.Background(), "modelstack-test-no-such-container", LogOptions{Tail: "10"})
	assert.ErrorIs(t, err, ErrContainerNotFound)
}

// =============================================================================
// Error Type Tests (no daemon required)
// =============================================================================

func TestDockerError_Format(t *testing.T) {
	err := NewDockerError("InspectContainer", "abc123", "container not found", ErrContainerNotFound)

	assert.Equal(t, "InspectContainer abc123: container not found", err.Error())
	assert.True(t, errors.Is(err, ErrContainerNotFound))
}

func TestDockerError_NoID(t *testing.T) {
	err := NewDockerError("Ping", "", "failed to ping docker", ErrConnectionFailed)

	assert.Equal(t, "Ping: failed to ping docker", err.Error())
	assert.True(t, errors.Is(err, ErrConnectionFailed))
}
