package monitors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNvidiaSMI(t *testing.T) {
	out := "NVIDIA GeForce RTX 4090, 37, 4096, 24564, 55\n" +
		"NVIDIA GeForce RTX 4090, 0, 0, 24564, 41\n"

	devices, err := parseNvidiaSMI(out)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	d := devices[0]
	require.Equal(t, 0, d.Index)
	require.Equal(t, "NVIDIA GeForce RTX 4090", d.Name)
	require.InDelta(t, 37, d.UtilizationPercent, 0.001)
	require.EqualValues(t, 4096*1024*1024, d.MemoryUsed)
	require.InDelta(t, float64(4096)/24564*100, d.MemoryPercent, 0.01)
	require.InDelta(t, 55, d.TemperatureC, 0.001)

	require.Equal(t, 1, devices[1].Index)
	require.Zero(t, devices[1].UtilizationPercent)
}

func TestParseNvidiaSMITolerantOfNA(t *testing.T) {
	devices, err := parseNvidiaSMI("Tesla K80, [N/A], 100, 11441, 60\n")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Zero(t, devices[0].UtilizationPercent)
}

func TestParseNvidiaSMIBadLine(t *testing.T) {
	_, err := parseNvidiaSMI("not,enough,fields\n")
	require.Error(t, err)
}

func TestGPUCollectorDegradesWithoutBinary(t *testing.T) {
	c := &GPUCollector{runQuery: func() ([]byte, error) {
		return nil, errors.New("exec: nvidia-smi: not found")
	}}
	info, err := c.Collect()
	require.NoError(t, err)
	require.False(t, info.Available)
}

func TestGPUCollectorParsesOutput(t *testing.T) {
	c := &GPUCollector{runQuery: func() ([]byte, error) {
		return []byte("Quadro P2000, 12, 512, 5120, 48\n"), nil
	}}
	info, err := c.Collect()
	require.NoError(t, err)
	require.True(t, info.Available)
	require.Len(t, info.Devices, 1)
}
