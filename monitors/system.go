// Package monitors collects host telemetry for the dashboard. The heavy
// lifting (procfs parsing) is delegated to goprocinfo; this package samples,
// derives rates and percentages, and feeds the SSE poller.
package monitors

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/c9s/goprocinfo/linux"
	"github.com/pkg/errors"
)

// SystemInfo is static host information computed once at startup.
type SystemInfo struct {
	OS              string    `json:"os"`
	KernelRelease   string    `json:"kernel_release"`
	Architecture    string    `json:"architecture"`
	Hostname        string    `json:"hostname"`
	PhysicalCores   int       `json:"physical_cores"`
	LogicalCPUs     int       `json:"logical_cpus"`
	BootTime        time.Time `json:"boot_time"`
	GoVersion       string    `json:"go_version"`
	PID             int       `json:"pid"`
	RunningFromAppImage bool  `json:"running_from_appimage"`
}

var (
	systemOnce sync.Once
	systemInfo SystemInfo
	systemErr  error
)

// System returns the static system information. The first call samples the
// host; later calls return the cached value.
func System() (SystemInfo, error) {
	systemOnce.Do(func() {
		systemInfo, systemErr = collectSystem("/proc")
	})
	return systemInfo, systemErr
}

func collectSystem(procRoot string) (SystemInfo, error) {
	info := SystemInfo{
		OS:           strings.ToUpper(runtime.GOOS[:1]) + runtime.GOOS[1:],
		Architecture: runtime.GOARCH,
		GoVersion:    strings.TrimPrefix(runtime.Version(), "go"),
		PID:          os.Getpid(),
		LogicalCPUs:  runtime.NumCPU(),
		RunningFromAppImage: os.Getenv("APPIMAGE") != "",
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	info.Hostname = hostname

	if release, err := os.ReadFile(filepath.Join(procRoot, "sys/kernel/osrelease")); err == nil {
		info.KernelRelease = strings.TrimSpace(string(release))
	}

	stat, err := linux.ReadStat(filepath.Join(procRoot, "stat"))
	if err != nil {
		return info, errors.Wrap(err, "read /proc/stat")
	}
	info.BootTime = stat.BootTime

	if cpuinfo, err := linux.ReadCPUInfo(filepath.Join(procRoot, "cpuinfo")); err == nil {
		info.PhysicalCores = cpuinfo.NumCore()
		info.LogicalCPUs = cpuinfo.NumCPU()
	}

	return info, nil
}

// Uptime returns how long the host has been up.
func (s SystemInfo) Uptime() time.Duration {
	if s.BootTime.IsZero() {
		return 0
	}
	return time.Since(s.BootTime)
}
