// Package stack sequences the lifecycle of the local AI stack: preflight
// checks, reconciliation against running containers, compose bring-up, and
// readiness polling.
package stack

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrToolMissing means a required external tool is not installed or the
	// docker daemon is unreachable. Terminal; nothing is retried.
	ErrToolMissing = errors.New("required tool missing")

	// ErrPortInUse means a service port is already bound by a foreign process.
	ErrPortInUse = errors.New("port already in use")
)

// StackError wraps errors with the operation and service they belong to.
type StackError struct {
	Op      string // Operation that failed (e.g., "Up", "Preflight")
	Service string // Service name if applicable
	Err     error
}

func (e *StackError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Service, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StackError) Unwrap() error {
	return e.Err
}

// NewStackError creates a new StackError.
func NewStackError(op, service string, err error) *StackError {
	return &StackError{
		Op:      op,
		Service: service,
		Err:     err,
	}
}
