package jobs

import (
	"sync"
	"time"
)

// DefaultEmitInterval is the minimum spacing between progress update
// callbacks. Faster updates are coalesced.
const DefaultEmitInterval = 100 * time.Millisecond

// ewmaAlpha weights the most recent instantaneous rate sample.
const ewmaAlpha = 0.3

// ProgressSnapshot is an immutable view of a Progress at one point in time.
type ProgressSnapshot struct {
	Current     int64
	Total       int64
	Percent     float64
	Rate        float64 // items per second, smoothed
	Elapsed     time.Duration
	ETA         time.Duration
	Description string
	// Indeterminate is true when no total is known.
	Indeterminate bool
}

// Progress tracks a running job's completion state. All methods are safe
// for concurrent use; the job function writes while render code reads.
type Progress struct {
	mu          sync.Mutex
	current     int64
	total       int64
	description string
	startedAt   time.Time
	lastAdvance time.Time
	rate        float64
	stopped     bool

	onUpdate     func(ProgressSnapshot)
	emitInterval time.Duration
	lastEmit     time.Time
}

// NewProgress creates a Progress toward the given total. A total of zero
// makes the progress indeterminate.
func NewProgress(total int64) *Progress {
	now := time.Now()
	return &Progress{
		total:        total,
		startedAt:    now,
		lastAdvance:  now,
		emitInterval: DefaultEmitInterval,
	}
}

// OnUpdate registers a callback invoked (throttled) whenever progress
// advances. Used to push progress-bar fragments over SSE.
func (p *Progress) OnUpdate(fn func(ProgressSnapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// SetEmitInterval overrides the update callback throttle.
func (p *Progress) SetEmitInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d >= 0 {
		p.emitInterval = d
	}
}

// SetTotal changes the expected total.
func (p *Progress) SetTotal(total int64) {
	p.mu.Lock()
	p.total = total
	fn, snap := p.maybeEmitLocked(false)
	p.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// SetDescription updates the human-readable progress label.
func (p *Progress) SetDescription(desc string) {
	p.mu.Lock()
	p.description = desc
	fn, snap := p.maybeEmitLocked(false)
	p.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Set moves the counter to an absolute position.
func (p *Progress) Set(n int64) {
	p.mu.Lock()
	p.advanceLocked(n - p.current)
	fn, snap := p.maybeEmitLocked(n >= p.total && p.total > 0)
	p.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Increment advances the counter by delta.
func (p *Progress) Increment(delta int64) {
	p.mu.Lock()
	p.advanceLocked(delta)
	done := p.total > 0 && p.current >= p.total
	fn, snap := p.maybeEmitLocked(done)
	p.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (p *Progress) advanceLocked(delta int64) {
	now := time.Now()
	if delta > 0 {
		dt := now.Sub(p.lastAdvance).Seconds()
		if dt > 0 {
			instant := float64(delta) / dt
			if p.rate == 0 {
				p.rate = instant
			} else {
				p.rate = ewmaAlpha*instant + (1-ewmaAlpha)*p.rate
			}
		}
		p.lastAdvance = now
	}
	p.current += delta
	if p.current < 0 {
		p.current = 0
	}
}

// maybeEmitLocked returns the callback and snapshot to fire outside the
// lock, or nil if throttled. Force bypasses the throttle (used for the
// final update).
func (p *Progress) maybeEmitLocked(force bool) (func(ProgressSnapshot), ProgressSnapshot) {
	if p.onUpdate == nil {
		return nil, ProgressSnapshot{}
	}
	now := time.Now()
	if !force && now.Sub(p.lastEmit) < p.emitInterval {
		return nil, ProgressSnapshot{}
	}
	p.lastEmit = now
	return p.onUpdate, p.snapshotLocked()
}

// Stop sets the cooperative stop flag. Long-running job functions check
// Stopped between iterations.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

// Stopped reports whether a stop was requested.
func (p *Progress) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Snapshot returns the current progress view.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Progress) snapshotLocked() ProgressSnapshot {
	snap := ProgressSnapshot{
		Current:       p.current,
		Total:         p.total,
		Rate:          p.rate,
		Elapsed:       time.Since(p.startedAt),
		Description:   p.description,
		Indeterminate: p.total <= 0,
	}
	if p.total > 0 {
		snap.Percent = float64(p.current) / float64(p.total) * 100
		if snap.Percent > 100 {
			snap.Percent = 100
		}
		if p.rate > 0 && p.current < p.total {
			remaining := float64(p.total-p.current) / p.rate
			snap.ETA = time.Duration(remaining * float64(time.Second))
		}
	}
	return snap
}
