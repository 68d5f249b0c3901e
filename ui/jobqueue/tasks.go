package jobqueue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/jobs"
)

// DemoTaskTypes lists the registered demo tasks in form order.
var DemoTaskTypes = []string{"quick", "slow", "failing", "indeterminate"}

const (
	quickSteps          = 20
	defaultSlowDuration = 30 * time.Second
	defaultSteps        = 100
)

// RegisterDemoTasks installs the demo task implementations. Every task
// checks for cancellation between steps; none of them touches anything
// outside the process.
func RegisterDemoTasks(r *jobs.Runner) {
	r.RegisterTask("quick", quickTask)
	r.RegisterTask("slow", slowTask)
	r.RegisterTask("failing", failingTask)
	r.RegisterTask("indeterminate", indeterminateTask)
}

// demoTotal sizes the progress monitor for a task type; zero means the
// task reports indeterminate progress.
func demoTotal(typ string, params map[string]string) int64 {
	switch typ {
	case "quick":
		return quickSteps
	case "slow", "failing":
		return int64(paramInt(params, "steps", defaultSteps))
	default:
		return 0
	}
}

func paramInt(params map[string]string, key string, fallback int) int {
	v, err := strconv.Atoi(params[key])
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func paramDuration(params map[string]string, key string, fallback time.Duration) time.Duration {
	secs, err := strconv.Atoi(params[key])
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}

// quickTask finishes in about two seconds.
func quickTask(ctx context.Context, p *jobs.Progress, params map[string]string) (any, error) {
	started := time.Now()
	for i := 0; i < quickSteps; i++ {
		if err := step(ctx, p, 100*time.Millisecond); err != nil {
			return nil, err
		}
		p.Increment(1)
	}
	return fmt.Sprintf("## Quick job done\n\nProcessed **%d** steps in %s.\n", quickSteps, time.Since(started).Round(time.Millisecond)), nil
}

// slowTask spreads the configured number of steps over the configured
// duration (default 30s over 100 steps).
func slowTask(ctx context.Context, p *jobs.Progress, params map[string]string) (any, error) {
	duration := paramDuration(params, "duration", defaultSlowDuration)
	steps := paramInt(params, "steps", defaultSteps)
	pause := duration / time.Duration(steps)

	started := time.Now()
	for i := 0; i < steps; i++ {
		if err := step(ctx, p, pause); err != nil {
			return nil, err
		}
		p.Increment(1)
		if i%10 == 0 {
			p.SetDescription(fmt.Sprintf("step %d of %d", i+1, steps))
		}
	}
	return fmt.Sprintf("## Slow job done\n\n- steps: %d\n- elapsed: %s\n", steps, time.Since(started).Round(time.Millisecond)), nil
}

// failingTask makes it halfway and then errors out.
func failingTask(ctx context.Context, p *jobs.Progress, params map[string]string) (any, error) {
	steps := paramInt(params, "steps", defaultSteps)
	for i := 0; i < steps/2; i++ {
		if err := step(ctx, p, 50*time.Millisecond); err != nil {
			return nil, err
		}
		p.Increment(1)
	}
	return nil, errors.Errorf("simulated failure at step %d of %d", steps/2, steps)
}

// indeterminateTask has no known total; it just runs for the configured
// duration, counting items.
func indeterminateTask(ctx context.Context, p *jobs.Progress, params map[string]string) (any, error) {
	duration := paramDuration(params, "duration", 15*time.Second)
	deadline := time.Now().Add(duration)

	items := 0
	for time.Now().Before(deadline) {
		if err := step(ctx, p, 200*time.Millisecond); err != nil {
			return nil, err
		}
		items++
		p.Increment(1)
		p.SetDescription(fmt.Sprintf("%d items processed", items))
	}
	return fmt.Sprintf("## Indeterminate job done\n\nProcessed **%d** items in %s.\n", items, duration), nil
}

// step sleeps one iteration, honoring both cancellation paths.
func step(ctx context.Context, p *jobs.Progress, d time.Duration) error {
	if p.Stopped() {
		return context.Canceled
	}
	select {
	case <-ctx.Done():
		return context.Canceled
	case <-time.After(d):
		return nil
	}
}
