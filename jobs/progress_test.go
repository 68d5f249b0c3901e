package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		current int64
		want    float64
	}{
		{"zero", 100, 0, 0},
		{"half", 100, 50, 50},
		{"done", 100, 100, 100},
		{"overshoot clamps", 100, 150, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(tt.total)
			p.Set(tt.current)
			require.InDelta(t, tt.want, p.Snapshot().Percent, 0.001)
		})
	}
}

func TestProgressIndeterminate(t *testing.T) {
	p := NewProgress(0)
	p.Increment(10)

	snap := p.Snapshot()
	require.True(t, snap.Indeterminate)
	require.EqualValues(t, 10, snap.Current)
	require.Zero(t, snap.Percent)
	require.Zero(t, snap.ETA)
}

func TestProgressStopFlag(t *testing.T) {
	p := NewProgress(10)
	require.False(t, p.Stopped())
	p.Stop()
	require.True(t, p.Stopped())
}

func TestProgressUpdateThrottle(t *testing.T) {
	p := NewProgress(1000)
	p.SetEmitInterval(time.Hour)

	var calls int
	p.OnUpdate(func(ProgressSnapshot) { calls++ })

	for i := 0; i < 100; i++ {
		p.Increment(1)
	}
	// First emit passes (lastEmit is zero), the rest are coalesced.
	require.Equal(t, 1, calls)
}

func TestProgressFinalUpdateBypassesThrottle(t *testing.T) {
	p := NewProgress(10)
	p.SetEmitInterval(time.Hour)

	var last ProgressSnapshot
	p.OnUpdate(func(s ProgressSnapshot) { last = s })

	for i := 0; i < 10; i++ {
		p.Increment(1)
	}
	require.EqualValues(t, 10, last.Current)
	require.InDelta(t, 100, last.Percent, 0.001)
}

func TestProgressETA(t *testing.T) {
	p := NewProgress(100)
	p.mu.Lock()
	p.current = 50
	p.rate = 10 // items/sec
	p.mu.Unlock()

	snap := p.Snapshot()
	require.InDelta(t, (5 * time.Second).Seconds(), snap.ETA.Seconds(), 0.1)
}

func TestProgressDescription(t *testing.T) {
	p := NewProgress(5)
	p.SetDescription("crunching")
	require.Equal(t, "crunching", p.Snapshot().Description)
}
