package monitors

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// InterfaceStat is one network interface sample. Rates are bytes per second
// derived from the delta against the previous sample.
type InterfaceStat struct {
	Name      string  `json:"name"`
	RxBytes   uint64  `json:"rx_bytes"`
	TxBytes   uint64  `json:"tx_bytes"`
	RxPackets uint64  `json:"rx_packets"`
	TxPackets uint64  `json:"tx_packets"`
	RxRate    float64 `json:"rx_rate"`
	TxRate    float64 `json:"tx_rate"`
}

// NetworkCollector samples /proc/net/dev and derives per-interface
// bandwidth from consecutive samples.
type NetworkCollector struct {
	procRoot string

	mu       sync.Mutex
	prev     map[string]linux.NetworkStat
	prevTime time.Time
}

// NewNetworkCollector creates a collector reading the real procfs.
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{procRoot: "/proc"}
}

// Collect returns the current interface samples. Rates are zero on the
// first call.
func (c *NetworkCollector) Collect() ([]InterfaceStat, error) {
	stats, err := linux.ReadNetworkStat(filepath.Join(c.procRoot, "net/dev"))
	if err != nil {
		return nil, errors.Wrap(err, "read /proc/net/dev")
	}
	now := time.Now()

	c.mu.Lock()
	prev := c.prev
	prevTime := c.prevTime
	c.prev = make(map[string]linux.NetworkStat, len(stats))
	for _, s := range stats {
		c.prev[s.Iface] = s
	}
	c.prevTime = now
	c.mu.Unlock()

	elapsed := now.Sub(prevTime).Seconds()
	out := make([]InterfaceStat, 0, len(stats))
	for _, s := range stats {
		iface := InterfaceStat{
			Name:      s.Iface,
			RxBytes:   s.RxBytes,
			TxBytes:   s.TxBytes,
			RxPackets: s.RxPackets,
			TxPackets: s.TxPackets,
		}
		if p, ok := prev[s.Iface]; ok && elapsed > 0 {
			iface.RxRate = rate(p.RxBytes, s.RxBytes, elapsed)
			iface.TxRate = rate(p.TxBytes, s.TxBytes, elapsed)
		}
		out = append(out, iface)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// rate converts a counter delta to a per-second rate, treating counter
// resets as zero.
func rate(prev, cur uint64, elapsed float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / elapsed
}
