// Package docker provides a read-only Docker client used to observe the
// stack's containers. Compose owns the container lifecycle; this client only
// queries state, fetches logs, and pings the daemon.
package docker

import (
	"context"
	"time"
)

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo contains the observed state of a container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	State     string // "running", "exited", "created", "paused", ...
	Health    string // "healthy", "unhealthy", "starting", "" when no healthcheck
	CreatedAt time.Time
	Ports     []PortBinding
	Labels    map[string]string
}

// PortBinding defines a published port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int
	Protocol      string
	HostIP        string
}

// =============================================================================
// Options
// =============================================================================

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "com.docker.compose.project=modelstack"}
}

// LogOptions defines options for fetching container logs.
type LogOptions struct {
	Tail       string // "all" or a number
	Timestamps bool
}

// =============================================================================
// Client Interface
// =============================================================================

// Client defines the Docker operations the stack manager needs.
type Client interface {
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	InspectContainer(ctx context.Context, nameOrID string) (*ContainerInfo, error)
	ContainerLogs(ctx context.Context, nameOrID string, opts LogOptions) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	// LabelComposeProject is the label compose stamps on every container it
	// creates; listing by it scopes queries to one stack.
	LabelComposeProject = "com.docker.compose.project"

	// LabelComposeService carries the compose service name.
	LabelComposeService = "com.docker.compose.service"
)
