package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store errors.
var (
	// ErrNotFound indicates the job id is unknown.
	ErrNotFound = errors.New("jobs: job not found")

	// ErrTerminalState indicates an attempted transition out of a final
	// state, e.g. cancelled back to running.
	ErrTerminalState = errors.New("jobs: job is in a terminal state")

	// ErrResultExists indicates a second result write for the same job.
	ErrResultExists = errors.New("jobs: result already set")
)

// Store holds job metadata and results in process-local maps. Nothing is
// ever persisted; the store dies with the process.
type Store struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*Job
	results map[uuid.UUID]any
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		jobs:    make(map[uuid.UUID]*Job),
		results: make(map[uuid.UUID]any),
	}
}

// Add inserts a new job record.
func (s *Store) Add(j *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *j
	s.jobs[j.ID] = &cp
}

// Get returns a copy of the job record.
func (s *Store) Get(id uuid.UUID) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns copies of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID.String() > out[k].ID.String()
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}

// SetStatus transitions a job to the given status, stamping StartedAt and
// FinishedAt as appropriate. Transitions out of a terminal state are
// refused with ErrTerminalState.
func (s *Store) SetStatus(id uuid.UUID, st Status) error {
	return s.setStatus(id, st, "")
}

// SetFailed marks the job failed and records the error message.
func (s *Store) SetFailed(id uuid.UUID, errMsg string) error {
	return s.setStatus(id, StatusFailed, errMsg)
}

func (s *Store) setStatus(id uuid.UUID, st Status, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status.Terminal() {
		return ErrTerminalState
	}

	j.Status = st
	if errMsg != "" {
		j.Error = errMsg
	}
	now := time.Now()
	if st == StatusRunning && j.StartedAt.IsZero() {
		j.StartedAt = now
	}
	if st.Terminal() {
		j.FinishedAt = now
	}
	return nil
}

// SetResult records the job's result payload. It may be set at most once.
func (s *Store) SetResult(id uuid.UUID, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	if _, ok := s.results[id]; ok {
		return ErrResultExists
	}
	s.results[id] = result
	return nil
}

// Result returns the job's result payload, if one was recorded.
func (s *Store) Result(id uuid.UUID) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok
}

// ClearCompleted deletes every terminal job and its result, returning the
// number of jobs removed.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, j := range s.jobs {
		if j.Status.Terminal() {
			delete(s.jobs, id)
			delete(s.results, id)
			removed++
		}
	}
	return removed
}

// Counts returns the number of jobs per status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
