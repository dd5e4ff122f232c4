package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRun(command, outcome string) *Run {
	now := time.Now().UTC()
	return &Run{
		Command:   command,
		Outcome:   outcome,
		StartedAt: now.Add(-30 * time.Second),
		FinishedAt: now,
		Services: []ServiceResult{
			{Name: "inference", Action: "up", Ready: true, ReadyIn: 12 * time.Second},
			{Name: "app", Action: "none", Ready: true},
		},
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestRecordRun_AssignsID(t *testing.T) {
	s := newTestStore(t)

	run := testRun("up", OutcomeSuccess)
	require.NoError(t, s.RecordRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
}

func TestGetRun_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := testRun("up", OutcomeSuccess)
	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "up", got.Command)
	assert.Equal(t, OutcomeSuccess, got.Outcome)
	require.Len(t, got.Services, 2)
	assert.Equal(t, "inference", got.Services[0].Name)
	assert.Equal(t, 12*time.Second, got.Services[0].ReadyIn)
	assert.True(t, got.StartedAt.Before(got.FinishedAt))
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRun(context.Background(), "no-such-run")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLastRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := testRun("up", OutcomeFailed)
	first.StartedAt = time.Now().UTC().Add(-time.Hour)
	first.FinishedAt = first.StartedAt.Add(time.Minute)
	require.NoError(t, s.RecordRun(ctx, first))

	second := testRun("up", OutcomeSuccess)
	require.NoError(t, s.RecordRun(ctx, second))

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)
}

func TestLastRun_Empty(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LastRun(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := testRun("up", OutcomeSuccess)
		run.StartedAt = time.Now().UTC().Add(time.Duration(-i) * time.Hour)
		run.FinishedAt = run.StartedAt.Add(time.Minute)
		require.NoError(t, s.RecordRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestLastRun_SubSecondOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Same second, one with zero nanoseconds: zero-nanosecond timestamps must
	// not sort after fractional ones.
	base := time.Now().UTC().Truncate(time.Second)

	older := testRun("up", OutcomeFailed)
	older.StartedAt = base
	older.FinishedAt = base.Add(time.Minute)
	require.NoError(t, s.RecordRun(ctx, older))

	newer := testRun("up", OutcomeSuccess)
	newer.StartedAt = base.Add(500 * time.Millisecond)
	newer.FinishedAt = base.Add(time.Minute)
	require.NoError(t, s.RecordRun(ctx, newer))

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, last.ID)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}

func TestRecordRun_NoServices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		Command:    "down",
		Outcome:    OutcomeSuccess,
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Services)
}
