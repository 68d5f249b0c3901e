package jobs

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newStoredJob(t *testing.T, s *Store, name string) uuid.UUID {
	t.Helper()
	j := &Job{
		ID:        uuid.New(),
		Name:      name,
		Type:      "demo",
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}
	s.Add(j)
	return j.ID
}

func TestStatusTransitions(t *testing.T) {
	s := NewStore()
	id := newStoredJob(t, s, "t")

	require.NoError(t, s.SetStatus(id, StatusRunning))
	j, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, StatusRunning, j.Status)
	require.False(t, j.StartedAt.IsZero())

	require.NoError(t, s.SetStatus(id, StatusCompleted))
	j, _ = s.Get(id)
	require.False(t, j.FinishedAt.IsZero())
}

func TestCancelledIsNeverOverwritten(t *testing.T) {
	s := NewStore()
	id := newStoredJob(t, s, "t")

	require.NoError(t, s.SetStatus(id, StatusRunning))
	require.NoError(t, s.SetStatus(id, StatusCancelled))

	// A late completion or restart must bounce off the terminal state.
	require.ErrorIs(t, s.SetStatus(id, StatusCompleted), ErrTerminalState)
	require.ErrorIs(t, s.SetStatus(id, StatusRunning), ErrTerminalState)

	j, _ := s.Get(id)
	require.Equal(t, StatusCancelled, j.Status)
}

func TestResultSetOnce(t *testing.T) {
	s := NewStore()
	id := newStoredJob(t, s, "t")

	require.NoError(t, s.SetResult(id, 42))
	require.ErrorIs(t, s.SetResult(id, 43), ErrResultExists)

	r, ok := s.Result(id)
	require.True(t, ok)
	require.Equal(t, 42, r)

	require.ErrorIs(t, s.SetResult(uuid.New(), 1), ErrNotFound)
}

func TestClearCompletedRemovesOnlyTerminalJobs(t *testing.T) {
	s := NewStore()
	done := newStoredJob(t, s, "done")
	failed := newStoredJob(t, s, "failed")
	cancelled := newStoredJob(t, s, "cancelled")
	active := newStoredJob(t, s, "active")

	require.NoError(t, s.SetStatus(done, StatusCompleted))
	require.NoError(t, s.SetResult(done, "ok"))
	require.NoError(t, s.SetFailed(failed, "boom"))
	require.NoError(t, s.SetStatus(cancelled, StatusCancelled))
	require.NoError(t, s.SetStatus(active, StatusRunning))

	require.Equal(t, 3, s.ClearCompleted())
	require.Equal(t, 1, s.Len())

	_, ok := s.Get(active)
	require.True(t, ok)
	_, ok = s.Result(done)
	require.False(t, ok)
}

func TestListNewestFirst(t *testing.T) {
	s := NewStore()
	base := time.Now()
	for i := 0; i < 3; i++ {
		s.Add(&Job{
			ID:        uuid.New(),
			Name:      string(rune('a' + i)),
			Status:    StatusQueued,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	list := s.List()
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].Name)
	require.Equal(t, "a", list[2].Name)
}

func TestCounts(t *testing.T) {
	s := NewStore()
	a := newStoredJob(t, s, "a")
	newStoredJob(t, s, "b")
	require.NoError(t, s.SetStatus(a, StatusRunning))

	counts := s.Counts()
	require.Equal(t, 1, counts[StatusQueued])
	require.Equal(t, 1, counts[StatusRunning])
}
