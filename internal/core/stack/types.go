// Package stack contains pure functions for stack reconciliation and status
// aggregation. Following the values-as-boundaries rule, this package does NO I/O.
package stack

import (
	"fmt"
	"time"
)

// =============================================================================
// Service Specification
// =============================================================================

// ServiceSpec describes one service of the stack as the operator configured it.
type ServiceSpec struct {
	// Name is the compose service name (e.g. "inference").
	Name string

	// ContainerName is the container name the compose file assigns.
	ContainerName string

	// HealthURL is the HTTP endpoint that reports readiness.
	HealthURL string

	// Port is the published host port for the service.
	Port int

	// Critical controls the failure policy: a readiness timeout on a
	// critical service aborts the run, on a non-critical one it downgrades
	// to a warning.
	Critical bool

	// HealthTimeout bounds the readiness polling. Default: 60s.
	HealthTimeout time.Duration

	// HealthInterval is the fixed polling interval. Default: 2s.
	HealthInterval time.Duration
}

// AccessURL returns the local URL the operator uses to reach the service.
func (s ServiceSpec) AccessURL() string {
	if s.Port == 0 {
		return s.HealthURL
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// =============================================================================
// Observed Container State
// =============================================================================

// ContainerState is the observed runtime state of a service's container.
type ContainerState string

const (
	ContainerStateRunning ContainerState = "running"
	ContainerStateExited  ContainerState = "exited"
	ContainerStateCreated ContainerState = "created"
	ContainerStatePaused  ContainerState = "paused"
	// ContainerStateMissing means no container with the expected name exists.
	ContainerStateMissing ContainerState = "missing"
)

// HealthState is the result of probing a service's health endpoint.
type HealthState string

const (
	HealthStateHealthy     HealthState = "healthy"
	HealthStateStarting    HealthState = "starting"
	HealthStateUnreachable HealthState = "unreachable"
	HealthStateUnknown     HealthState = "unknown"
)

// ServiceStatus combines spec, observed container state, and probe result
// for one service.
type ServiceStatus struct {
	Name          string
	ContainerName string
	Container     ContainerState
	Health        HealthState
	Port          int
}

// StackStatus summarizes the whole stack.
type StackStatus struct {
	// State is one of "running", "partial", "stopped".
	State    string
	Services []ServiceStatus
}
