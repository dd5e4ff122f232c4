// Package store persists run history for the stack manager.
package store

import (
	"context"
	"time"
)

// =============================================================================
// Run History Types
// =============================================================================

// Run outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded" // completed, but a non-critical service never became ready
	OutcomeFailed   = "failed"
)

// Run records one invocation of a stack lifecycle command.
type Run struct {
	ID         string
	Command    string // "up", "down", "destroy"
	Outcome    string
	Services   []ServiceResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// ServiceResult captures what happened to one service during a run.
type ServiceResult struct {
	Name    string        `json:"name"`
	Action  string        `json:"action"` // "none" or "up"
	Ready   bool          `json:"ready"`
	ReadyIn time.Duration `json:"ready_in_ns"`
}

// =============================================================================
// Store Interface
// =============================================================================

// Store defines run history persistence operations.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	LastRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
