package monitors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const netDevFirst = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    1000      10    0    0    0     0          0         0     1000      10    0    0    0     0       0          0
  eth0:   10000     100    0    0    0     0          0         0     5000      50    0    0    0     0       0          0
`

const netDevSecond = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    1000      10    0    0    0     0          0         0     1000      10    0    0    0     0       0          0
  eth0:   30000     200    0    0    0     0          0         0    15000    100    0    0    0     0       0          0
`

func TestNetworkBandwidthFromDeltas(t *testing.T) {
	root := t.TempDir()
	writeProcFile(t, root, "net/dev", netDevFirst)

	c := &NetworkCollector{procRoot: root}

	first, err := c.Collect()
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Zero(t, first[0].RxRate, "first sample has no delta")

	// Pretend a second passed.
	c.mu.Lock()
	c.prevTime = time.Now().Add(-time.Second)
	c.mu.Unlock()

	writeProcFile(t, root, "net/dev", netDevSecond)
	second, err := c.Collect()
	require.NoError(t, err)

	byName := map[string]InterfaceStat{}
	for _, s := range second {
		byName[s.Name] = s
	}

	eth0 := byName["eth0"]
	require.EqualValues(t, 30000, eth0.RxBytes)
	// 20000 bytes over ~1s.
	require.InDelta(t, 20000, eth0.RxRate, 500)
	require.InDelta(t, 10000, eth0.TxRate, 500)
	require.Zero(t, byName["lo"].RxRate)
}

func TestRateCounterReset(t *testing.T) {
	require.Zero(t, rate(1000, 500, 1.0), "counter reset reports zero")
	require.InDelta(t, 250, rate(500, 1000, 2.0), 0.001)
}
