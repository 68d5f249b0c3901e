package monitors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeTopN(t *testing.T) {
	samples := []ProcessSample{
		{PID: 1, Name: "init", CPUPercent: 0.1, MemoryPercent: 0.5, Status: "S"},
		{PID: 2, Name: "hog", CPUPercent: 90, MemoryPercent: 1, Status: "R"},
		{PID: 3, Name: "db", CPUPercent: 10, MemoryPercent: 40, Status: "S"},
		{PID: 4, Name: "cache", CPUPercent: 5, MemoryPercent: 30, Status: "S"},
		{PID: 5, Name: "idle", CPUPercent: 0, MemoryPercent: 0, Status: "S"},
		{PID: 6, Name: "web", CPUPercent: 20, MemoryPercent: 2, Status: "R"},
	}

	info := summarize(samples, 3)

	// The fully idle process is excluded everywhere.
	require.Equal(t, 5, info.Total)

	require.Len(t, info.TopCPU, 3)
	require.Equal(t, "hog", info.TopCPU[0].Name)
	require.Equal(t, "web", info.TopCPU[1].Name)
	require.Equal(t, "db", info.TopCPU[2].Name)

	require.Len(t, info.TopMemory, 3)
	require.Equal(t, "db", info.TopMemory[0].Name)
	require.Equal(t, "cache", info.TopMemory[1].Name)

	require.Equal(t, 2, info.StatusCounts["R"])
	require.Equal(t, 3, info.StatusCounts["S"])
}

func TestSummarizeFewerThanN(t *testing.T) {
	samples := []ProcessSample{
		{PID: 1, Name: "only", CPUPercent: 1, MemoryPercent: 1, Status: "S"},
	}
	info := summarize(samples, 5)
	require.Len(t, info.TopCPU, 1)
	require.Len(t, info.TopMemory, 1)
}

func TestTrimName(t *testing.T) {
	require.Equal(t, "short", trimName("short"))
	long := "a-really-long-process-name-that-keeps-going"
	require.Len(t, trimName(long), maxProcessNameLen)
}
