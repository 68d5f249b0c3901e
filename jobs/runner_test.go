package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, s *Store, id uuid.UUID, want Status) Job {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if j, ok := s.Get(id); ok && j.Status == want {
			return j
		}
		select {
		case <-deadline:
			j, _ := s.Get(id)
			t.Fatalf("job never reached %s, stuck at %s", want, j.Status)
			return Job{}
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSubmitRunsToCompletion(t *testing.T) {
	store := NewStore()
	r := NewRunner(store)
	r.RegisterTask("sum", func(ctx context.Context, p *Progress, params map[string]string) (any, error) {
		total := 0
		for i := 1; i <= 10; i++ {
			total += i
			p.Increment(1)
		}
		return total, nil
	})

	id, err := r.Submit("sum to ten", "sum", nil, 10)
	require.NoError(t, err)

	j := waitForStatus(t, store, id, StatusCompleted)
	require.False(t, j.FinishedAt.IsZero())

	result, ok := store.Result(id)
	require.True(t, ok)
	require.Equal(t, 55, result)
}

func TestSubmitUnknownTask(t *testing.T) {
	r := NewRunner(NewStore())
	_, err := r.Submit("x", "nope", nil, 0)
	require.ErrorIs(t, err, ErrUnknownTask)
}

func TestCancelSticks(t *testing.T) {
	store := NewStore()
	r := NewRunner(store)

	started := make(chan struct{})
	release := make(chan struct{})
	r.RegisterTask("block", func(ctx context.Context, p *Progress, params map[string]string) (any, error) {
		close(started)
		<-release
		// Misbehaving job: returns a success value after cancellation.
		return "late result", nil
	})

	id, err := r.Submit("blocker", "block", nil, 0)
	require.NoError(t, err)
	<-started

	require.NoError(t, r.Cancel(id))
	j, _ := store.Get(id)
	require.Equal(t, StatusCancelled, j.Status)

	close(release)
	require.NoError(t, r.Close(context.Background()))

	// The late completion must not overwrite the cancellation, and its
	// result must be discarded.
	j, _ = store.Get(id)
	require.Equal(t, StatusCancelled, j.Status)
	_, ok := store.Result(id)
	require.False(t, ok)
}

func TestCancelledContextObserved(t *testing.T) {
	store := NewStore()
	r := NewRunner(store)
	r.RegisterTask("loop", func(ctx context.Context, p *Progress, params map[string]string) (any, error) {
		for {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Millisecond):
				p.Increment(1)
			}
		}
	})

	id, err := r.Submit("looper", "loop", nil, 0)
	require.NoError(t, err)
	waitForStatus(t, store, id, StatusRunning)

	require.NoError(t, r.Cancel(id))
	j := waitForStatus(t, store, id, StatusCancelled)
	require.Equal(t, StatusCancelled, j.Status)
	require.NoError(t, r.Close(context.Background()))
}

func TestPanicBecomesFailed(t *testing.T) {
	store := NewStore()
	r := NewRunner(store)
	r.RegisterTask("panic", func(ctx context.Context, p *Progress, params map[string]string) (any, error) {
		panic("kaboom")
	})

	id, err := r.Submit("bad", "panic", nil, 0)
	require.NoError(t, err)

	j := waitForStatus(t, store, id, StatusFailed)
	require.Contains(t, j.Error, "kaboom")
}

func TestFailedJobRecordsError(t *testing.T) {
	store := NewStore()
	r := NewRunner(store)
	r.RegisterTask("fail", func(ctx context.Context, p *Progress, params map[string]string) (any, error) {
		return nil, context.DeadlineExceeded
	})

	id, err := r.Submit("failer", "fail", nil, 0)
	require.NoError(t, err)

	j := waitForStatus(t, store, id, StatusFailed)
	require.NotEmpty(t, j.Error)
	result, ok := store.Result(id)
	require.True(t, ok)
	require.Contains(t, result.(map[string]string)["error"], "deadline")
}

type recordingHooks struct {
	mu     chan struct{}
	events []string
}

func (h *recordingHooks) JobQueued(Job)   { h.events = append(h.events, "queued") }
func (h *recordingHooks) JobStarted(Job)  { h.events = append(h.events, "started") }
func (h *recordingHooks) JobFinished(Job) { close(h.mu) }

func TestHooksFireInOrder(t *testing.T) {
	store := NewStore()
	hooks := &recordingHooks{mu: make(chan struct{})}
	r := NewRunner(store, WithHooks(hooks))
	r.RegisterTask("noop", func(ctx context.Context, p *Progress, params map[string]string) (any, error) {
		return nil, nil
	})

	_, err := r.Submit("n", "noop", nil, 0)
	require.NoError(t, err)

	select {
	case <-hooks.mu:
	case <-time.After(5 * time.Second):
		t.Fatal("JobFinished never fired")
	}
	require.Equal(t, []string{"queued", "started"}, hooks.events)
}
