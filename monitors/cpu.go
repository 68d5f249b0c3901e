package monitors

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// CPUInfo is one CPU usage sample.
type CPUInfo struct {
	Percent         float64   `json:"percent"`
	PerCorePercent  []float64 `json:"percent_per_core"`
	FrequencyMHz    float64   `json:"frequency_current"`
	FrequencyMinMHz float64   `json:"frequency_min"`
	FrequencyMaxMHz float64   `json:"frequency_max"`
	Load1           float64   `json:"load_1"`
	Load5           float64   `json:"load_5"`
	Load15          float64   `json:"load_15"`
}

// CPUCollector samples /proc/stat. Usage percentages are derived from the
// delta against the previous sample, so the first Collect reports zero.
type CPUCollector struct {
	procRoot string
	sysRoot  string

	mu   sync.Mutex
	prev *linux.Stat
}

// NewCPUCollector creates a collector reading the real procfs.
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{procRoot: "/proc", sysRoot: "/sys"}
}

// Collect returns the current CPU usage sample.
func (c *CPUCollector) Collect() (CPUInfo, error) {
	stat, err := linux.ReadStat(filepath.Join(c.procRoot, "stat"))
	if err != nil {
		return CPUInfo{}, errors.Wrap(err, "read /proc/stat")
	}

	c.mu.Lock()
	prev := c.prev
	c.prev = stat
	c.mu.Unlock()

	info := CPUInfo{}
	if prev != nil {
		info.Percent = cpuPercent(prev.CPUStatAll, stat.CPUStatAll)
		n := len(stat.CPUStats)
		if len(prev.CPUStats) < n {
			n = len(prev.CPUStats)
		}
		info.PerCorePercent = make([]float64, n)
		for i := 0; i < n; i++ {
			info.PerCorePercent[i] = cpuPercent(prev.CPUStats[i], stat.CPUStats[i])
		}
	} else {
		info.PerCorePercent = make([]float64, len(stat.CPUStats))
	}

	if cpuinfo, err := linux.ReadCPUInfo(filepath.Join(c.procRoot, "cpuinfo")); err == nil && len(cpuinfo.Processors) > 0 {
		var sum float64
		for _, p := range cpuinfo.Processors {
			sum += p.MHz
		}
		info.FrequencyMHz = sum / float64(len(cpuinfo.Processors))
	}
	info.FrequencyMinMHz = readFreqKHz(c.sysRoot, "cpuinfo_min_freq") / 1000
	info.FrequencyMaxMHz = readFreqKHz(c.sysRoot, "cpuinfo_max_freq") / 1000

	if load, err := linux.ReadLoadAvg(filepath.Join(c.procRoot, "loadavg")); err == nil {
		info.Load1 = load.Last1Min
		info.Load5 = load.Last5Min
		info.Load15 = load.Last15Min
	}

	return info, nil
}

// cpuPercent derives busy percentage from two cumulative tick samples.
func cpuPercent(prev, cur linux.CPUStat) float64 {
	prevIdle := prev.Idle + prev.IOWait
	curIdle := cur.Idle + cur.IOWait
	prevTotal := cpuTotal(prev)
	curTotal := cpuTotal(cur)

	totald := float64(curTotal) - float64(prevTotal)
	idled := float64(curIdle) - float64(prevIdle)
	if totald <= 0 {
		return 0
	}
	pct := (totald - idled) / totald * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func cpuTotal(s linux.CPUStat) uint64 {
	return s.User + s.Nice + s.System + s.Idle + s.IOWait + s.IRQ + s.SoftIRQ + s.Steal
}

// readFreqKHz reads a cpufreq sysfs attribute for cpu0. Returns zero when
// the attribute is unavailable (VMs, containers).
func readFreqKHz(sysRoot, name string) float64 {
	raw, err := os.ReadFile(filepath.Join(sysRoot, "devices/system/cpu/cpu0/cpufreq", name))
	if err != nil {
		return 0
	}
	khz, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0
	}
	return khz
}
