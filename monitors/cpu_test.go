package monitors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c9s/goprocinfo/linux"
	"github.com/stretchr/testify/require"
)

func TestCPUPercent(t *testing.T) {
	tests := []struct {
		name string
		prev linux.CPUStat
		cur  linux.CPUStat
		want float64
	}{
		{
			name: "half busy",
			prev: linux.CPUStat{User: 100, Idle: 100},
			cur:  linux.CPUStat{User: 150, Idle: 150},
			want: 50,
		},
		{
			name: "fully idle",
			prev: linux.CPUStat{User: 100, Idle: 100},
			cur:  linux.CPUStat{User: 100, Idle: 200},
			want: 0,
		},
		{
			name: "fully busy",
			prev: linux.CPUStat{User: 100, System: 50, Idle: 100},
			cur:  linux.CPUStat{User: 180, System: 70, Idle: 100},
			want: 100,
		},
		{
			name: "iowait counts as idle",
			prev: linux.CPUStat{User: 100, Idle: 100, IOWait: 0},
			cur:  linux.CPUStat{User: 150, Idle: 100, IOWait: 50},
			want: 50,
		},
		{
			name: "no delta",
			prev: linux.CPUStat{User: 100, Idle: 100},
			cur:  linux.CPUStat{User: 100, Idle: 100},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, cpuPercent(tt.prev, tt.cur), 0.001)
		})
	}
}

func writeProcFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const statFirst = `cpu  100 0 50 800 50 0 0 0 0 0
cpu0 50 0 25 400 25 0 0 0 0 0
cpu1 50 0 25 400 25 0 0 0 0 0
intr 0
ctxt 500000
btime 1700000000
processes 1000
procs_running 2
procs_blocked 0
`

const statSecond = `cpu  200 0 100 850 50 0 0 0 0 0
cpu0 150 0 75 400 25 0 0 0 0 0
cpu1 50 0 25 450 25 0 0 0 0 0
intr 0
ctxt 500000
btime 1700000000
processes 1000
procs_running 2
procs_blocked 0
`

func TestCPUCollectorDeltas(t *testing.T) {
	root := t.TempDir()
	writeProcFile(t, root, "stat", statFirst)
	writeProcFile(t, root, "loadavg", "0.50 0.40 0.30 2/100 12345\n")

	c := &CPUCollector{procRoot: root, sysRoot: t.TempDir()}

	first, err := c.Collect()
	require.NoError(t, err)
	require.Zero(t, first.Percent, "first sample has no delta")
	require.Len(t, first.PerCorePercent, 2)
	require.InDelta(t, 0.5, first.Load1, 0.001)

	writeProcFile(t, root, "stat", statSecond)
	second, err := c.Collect()
	require.NoError(t, err)

	// Overall: busy delta 150 of total delta 200.
	require.InDelta(t, 75, second.Percent, 0.001)
	// cpu0 did all the work, cpu1 stayed idle.
	require.InDelta(t, 100, second.PerCorePercent[0], 0.001)
	require.InDelta(t, 0, second.PerCorePercent[1], 0.001)
}
