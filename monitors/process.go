package monitors

import (
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// MaxProcesses is how many rows the top-CPU and top-memory tables show.
const MaxProcesses = 5

// maxProcessNameLen truncates long command names for display.
const maxProcessNameLen = 30

// ProcessSample is one process in a snapshot.
type ProcessSample struct {
	PID           uint64  `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	Username      string  `json:"username"`
	Status        string  `json:"status"`
}

// ProcessInfo is one process-table snapshot.
type ProcessInfo struct {
	TopCPU       []ProcessSample `json:"top_cpu"`
	TopMemory    []ProcessSample `json:"top_memory"`
	Total        int             `json:"total"`
	StatusCounts map[string]int  `json:"status_counts"`
}

// ProcessCollector walks /proc and derives per-process CPU usage from
// consecutive samples.
type ProcessCollector struct {
	procRoot string
	topN     int

	mu        sync.Mutex
	prevTicks map[uint64]uint64 // pid -> utime+stime
	prevTotal uint64            // aggregate cpu ticks

	userCache map[string]string // uid -> username
}

// NewProcessCollector creates a collector reading the real procfs.
func NewProcessCollector() *ProcessCollector {
	return &ProcessCollector{
		procRoot:  "/proc",
		topN:      MaxProcesses,
		prevTicks: make(map[uint64]uint64),
		userCache: make(map[string]string),
	}
}

// Collect returns the current process snapshot. Processes that vanish
// between the directory walk and the stat read are skipped.
func (c *ProcessCollector) Collect() (ProcessInfo, error) {
	stat, err := linux.ReadStat(filepath.Join(c.procRoot, "stat"))
	if err != nil {
		return ProcessInfo{}, errors.Wrap(err, "read /proc/stat")
	}
	total := cpuTotal(stat.CPUStatAll)
	numCPU := len(stat.CPUStats)
	if numCPU == 0 {
		numCPU = 1
	}

	mem, err := linux.ReadMemInfo(filepath.Join(c.procRoot, "meminfo"))
	if err != nil {
		return ProcessInfo{}, errors.Wrap(err, "read /proc/meminfo")
	}
	memTotal := mem.MemTotal * 1024

	entries, err := os.ReadDir(c.procRoot)
	if err != nil {
		return ProcessInfo{}, errors.Wrap(err, "read proc dir")
	}

	c.mu.Lock()
	prevTicks := c.prevTicks
	prevTotal := c.prevTotal
	nextTicks := make(map[uint64]uint64, len(prevTicks))
	c.mu.Unlock()

	totald := float64(total) - float64(prevTotal)
	pageSize := uint64(os.Getpagesize())

	var samples []ProcessSample
	for _, e := range entries {
		pid, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil {
			continue
		}

		pstat, err := linux.ReadProcessStat(filepath.Join(c.procRoot, e.Name(), "stat"))
		if err != nil {
			// Died between the walk and the read.
			continue
		}

		ticks := pstat.Utime + pstat.Stime
		nextTicks[pid] = ticks

		s := ProcessSample{
			PID:    pid,
			Name:   trimName(pstat.Comm),
			Status: pstat.State,
		}
		if pstat.Rss > 0 {
			s.MemoryBytes = uint64(pstat.Rss) * pageSize
			if memTotal > 0 {
				s.MemoryPercent = float64(s.MemoryBytes) / float64(memTotal) * 100
			}
		}
		if prev, ok := prevTicks[pid]; ok && totald > 0 && ticks >= prev {
			s.CPUPercent = float64(ticks-prev) / totald * float64(numCPU) * 100
		}
		s.Username = c.username(filepath.Join(c.procRoot, e.Name(), "status"))

		samples = append(samples, s)
	}

	c.mu.Lock()
	c.prevTicks = nextTicks
	c.prevTotal = total
	c.mu.Unlock()

	return summarize(samples, c.topN), nil
}

// summarize reduces raw samples to the dashboard view: top-N by CPU, top-N
// by memory, totals and status counts. Idle processes (no CPU, no memory)
// are excluded, matching what the tables display.
func summarize(samples []ProcessSample, topN int) ProcessInfo {
	active := make([]ProcessSample, 0, len(samples))
	statusCounts := make(map[string]int)
	for _, s := range samples {
		if s.CPUPercent <= 0 && s.MemoryPercent <= 0 {
			continue
		}
		active = append(active, s)
		statusCounts[s.Status]++
	}

	info := ProcessInfo{
		Total:        len(active),
		StatusCounts: statusCounts,
	}

	byCPU := make([]ProcessSample, len(active))
	copy(byCPU, active)
	sort.SliceStable(byCPU, func(i, j int) bool { return byCPU[i].CPUPercent > byCPU[j].CPUPercent })
	info.TopCPU = head(byCPU, topN)

	byMem := make([]ProcessSample, len(active))
	copy(byMem, active)
	sort.SliceStable(byMem, func(i, j int) bool { return byMem[i].MemoryPercent > byMem[j].MemoryPercent })
	info.TopMemory = head(byMem, topN)

	return info
}

func head(s []ProcessSample, n int) []ProcessSample {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func trimName(name string) string {
	if len(name) > maxProcessNameLen {
		return name[:maxProcessNameLen]
	}
	return name
}

// username resolves the process owner from its status file, with a uid
// lookup cache.
func (c *ProcessCollector) username(statusPath string) string {
	status, err := linux.ReadProcessStatus(statusPath)
	if err != nil {
		return "N/A"
	}
	uid := strconv.FormatUint(uint64(status.RealUid), 10)

	c.mu.Lock()
	name, ok := c.userCache[uid]
	c.mu.Unlock()
	if ok {
		return name
	}

	name = uid
	if u, err := user.LookupId(uid); err == nil {
		name = u.Username
	}
	if len(name) > 15 {
		name = name[:15]
	}

	c.mu.Lock()
	c.userCache[uid] = name
	c.mu.Unlock()
	return name
}
