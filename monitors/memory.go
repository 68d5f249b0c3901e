package monitors

import (
	"path/filepath"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// MemoryInfo is one memory usage sample. All sizes are bytes.
type MemoryInfo struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	Used        uint64  `json:"used"`
	Percent     float64 `json:"percent"`
	SwapTotal   uint64  `json:"swap_total"`
	SwapUsed    uint64  `json:"swap_used"`
	SwapPercent float64 `json:"swap_percent"`
}

// MemoryCollector samples /proc/meminfo.
type MemoryCollector struct {
	procRoot string
}

// NewMemoryCollector creates a collector reading the real procfs.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{procRoot: "/proc"}
}

// Collect returns the current memory usage sample.
func (c *MemoryCollector) Collect() (MemoryInfo, error) {
	mem, err := linux.ReadMemInfo(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		return MemoryInfo{}, errors.Wrap(err, "read /proc/meminfo")
	}

	const kb = 1024
	info := MemoryInfo{
		Total:     mem.MemTotal * kb,
		Available: mem.MemAvailable * kb,
		SwapTotal: mem.SwapTotal * kb,
	}
	if info.Available > info.Total {
		info.Available = info.Total
	}
	info.Used = info.Total - info.Available
	if info.Total > 0 {
		info.Percent = float64(info.Used) / float64(info.Total) * 100
	}

	swapFree := mem.SwapFree * kb
	if swapFree > info.SwapTotal {
		swapFree = info.SwapTotal
	}
	info.SwapUsed = info.SwapTotal - swapFree
	if info.SwapTotal > 0 {
		info.SwapPercent = float64(info.SwapUsed) / float64(info.SwapTotal) * 100
	}

	return info, nil
}
