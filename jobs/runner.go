package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/logger"
)

// JobFunc is a registered task implementation. It should return promptly
// after ctx is cancelled or p.Stopped() turns true; cancellation is
// cooperative and only observed between iterations of the function's own
// loop. The returned value becomes the job result.
type JobFunc func(ctx context.Context, p *Progress, params map[string]string) (any, error)

// ErrUnknownTask indicates Submit was called with an unregistered job type.
var ErrUnknownTask = errors.New("jobs: unknown task type")

type running struct {
	cancel   context.CancelFunc
	progress *Progress
}

// Runner executes registered task functions, one goroutine per job, and
// keeps the Store up to date.
type Runner struct {
	store  *Store
	logger logger.Logger
	hooks  []Hooks

	mu      sync.Mutex
	tasks   map[string]JobFunc
	running map[uuid.UUID]*running
	closed  bool

	wg sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHooks appends lifecycle hooks.
func WithHooks(h ...Hooks) RunnerOption {
	return func(r *Runner) {
		r.hooks = append(r.hooks, h...)
	}
}

// NewRunner creates a Runner backed by the given store.
func NewRunner(store *Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:   store,
		logger:  logger.NopLogger{},
		tasks:   make(map[string]JobFunc),
		running: make(map[uuid.UUID]*running),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddHooks appends lifecycle hooks after construction. Not safe to call
// once jobs have been submitted.
func (r *Runner) AddHooks(h ...Hooks) {
	r.hooks = append(r.hooks, h...)
}

// RegisterTask binds a job type name to its implementation.
func (r *Runner) RegisterTask(typ string, fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[typ] = fn
}

// TaskTypes returns the registered job type names.
func (r *Runner) TaskTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tasks))
	for typ := range r.tasks {
		out = append(out, typ)
	}
	return out
}

// Submit creates a job record and starts executing it. The total argument
// sizes the job's progress monitor; zero means indeterminate.
func (r *Runner) Submit(name, typ string, params map[string]string, total int64) (uuid.UUID, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return uuid.Nil, errors.New("jobs: runner is closed")
	}
	fn, ok := r.tasks[typ]
	if !ok {
		r.mu.Unlock()
		return uuid.Nil, errors.Wrap(ErrUnknownTask, typ)
	}

	job := &Job{
		ID:        uuid.New(),
		Name:      name,
		Type:      typ,
		Status:    StatusQueued,
		Params:    params,
		CreatedAt: time.Now(),
	}
	r.store.Add(job)

	ctx, cancel := context.WithCancel(context.Background())
	run := &running{cancel: cancel, progress: NewProgress(total)}
	r.running[job.ID] = run
	r.wg.Add(1)
	r.mu.Unlock()

	r.fireQueued(*job)
	go r.run(ctx, job.ID, run, fn, params)

	return job.ID, nil
}

func (r *Runner) run(ctx context.Context, id uuid.UUID, run *running, fn JobFunc, params map[string]string) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.running, id)
		r.mu.Unlock()
	}()

	if err := r.store.SetStatus(id, StatusRunning); err != nil {
		// Cancelled before it ever ran.
		r.finish(id)
		return
	}
	if job, ok := r.store.Get(id); ok {
		r.fireStarted(job)
	}

	result, err := r.invoke(ctx, run.progress, fn, params)

	switch {
	case err == nil:
		if serr := r.store.SetStatus(id, StatusCompleted); serr == nil {
			if rerr := r.store.SetResult(id, result); rerr != nil {
				r.logger.Warn("job result discarded", "id", id, "error", rerr.Error())
			}
		}
	case errors.Is(err, context.Canceled):
		// Cancel already moved the job to cancelled; nothing to record.
		_ = r.store.SetStatus(id, StatusCancelled)
	default:
		if serr := r.store.SetFailed(id, err.Error()); serr == nil {
			_ = r.store.SetResult(id, map[string]string{"error": err.Error()})
		}
	}

	r.finish(id)
}

// invoke runs the job function, converting a panic into an error.
func (r *Runner) invoke(ctx context.Context, p *Progress, fn JobFunc, params map[string]string) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("job panicked: %v", rec)
			r.logger.Error("job panicked", "panic", fmt.Sprint(rec))
		}
	}()
	return fn(ctx, p, params)
}

func (r *Runner) finish(id uuid.UUID) {
	if job, ok := r.store.Get(id); ok {
		r.fireFinished(job)
	}
}

// Cancel requests cancellation of a job. The status flips to cancelled
// immediately; the job function is expected to notice the cancelled context
// or stop flag and return. Cancelling a terminal job is a no-op.
func (r *Runner) Cancel(id uuid.UUID) error {
	job, ok := r.store.Get(id)
	if !ok {
		return ErrNotFound
	}
	if job.Status.Terminal() {
		return nil
	}

	// Flip status first so a racing completion hits the terminal-state
	// guard instead of overwriting the cancellation.
	if err := r.store.SetStatus(id, StatusCancelled); err != nil {
		return nil
	}

	r.mu.Lock()
	run, ok := r.running[id]
	r.mu.Unlock()
	if ok {
		run.progress.Stop()
		run.cancel()
	}

	// JobFinished fires from the job goroutine once the function returns.
	r.logger.Info("job cancelled", "id", id, "name", job.Name)
	return nil
}

// Progress returns the live progress monitor for a job, if it is still
// tracked by the runner.
func (r *Runner) Progress(id uuid.UUID) (*Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.running[id]
	if !ok {
		return nil, false
	}
	return run.progress, true
}

// Close cancels every running job and waits for their goroutines to exit,
// or for ctx to expire.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	for _, run := range r.running {
		run.progress.Stop()
		run.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) fireQueued(job Job) {
	for _, h := range r.hooks {
		h.JobQueued(job)
	}
}

func (r *Runner) fireStarted(job Job) {
	for _, h := range r.hooks {
		h.JobStarted(job)
	}
}

func (r *Runner) fireFinished(job Job) {
	for _, h := range r.hooks {
		h.JobFinished(job)
	}
}
