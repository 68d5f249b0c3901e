package monitors

import (
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// GPUDevice is one NVIDIA device sample.
type GPUDevice struct {
	Index              int     `json:"index"`
	Name               string  `json:"name"`
	UtilizationPercent float64 `json:"utilization_percent"`
	MemoryUsed         uint64  `json:"memory_used"`  // bytes
	MemoryTotal        uint64  `json:"memory_total"` // bytes
	MemoryPercent      float64 `json:"memory_percent"`
	TemperatureC       float64 `json:"temperature_c"`
}

// GPUInfo is one GPU snapshot. Available is false when no NVIDIA driver is
// present on the host.
type GPUInfo struct {
	Available bool        `json:"available"`
	Devices   []GPUDevice `json:"devices"`
}

const nvidiaSMIQuery = "name,utilization.gpu,memory.used,memory.total,temperature.gpu"

// GPUCollector shells out to nvidia-smi. Hosts without the binary report
// an unavailable GPU rather than an error.
type GPUCollector struct {
	// runQuery is swappable for tests.
	runQuery func() ([]byte, error)
}

// NewGPUCollector creates a collector invoking the real nvidia-smi.
func NewGPUCollector() *GPUCollector {
	return &GPUCollector{
		runQuery: func() ([]byte, error) {
			return exec.Command("nvidia-smi",
				"--query-gpu="+nvidiaSMIQuery,
				"--format=csv,noheader,nounits").Output()
		},
	}
}

// Collect returns the current GPU snapshot.
func (c *GPUCollector) Collect() (GPUInfo, error) {
	out, err := c.runQuery()
	if err != nil {
		// Missing binary or no devices: degrade, don't fail the tick.
		return GPUInfo{Available: false}, nil
	}
	devices, err := parseNvidiaSMI(string(out))
	if err != nil {
		return GPUInfo{Available: false}, err
	}
	return GPUInfo{Available: len(devices) > 0, Devices: devices}, nil
}

// parseNvidiaSMI parses csv,noheader,nounits output, one device per line:
// name, utilization.gpu [%], memory.used [MiB], memory.total [MiB], temp [C]
func parseNvidiaSMI(out string) ([]GPUDevice, error) {
	var devices []GPUDevice
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, errors.Errorf("unexpected nvidia-smi line %q", line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		dev := GPUDevice{Index: len(devices), Name: fields[0]}
		dev.UtilizationPercent = parseFloatOrZero(fields[1])
		usedMiB := parseFloatOrZero(fields[2])
		totalMiB := parseFloatOrZero(fields[3])
		dev.MemoryUsed = uint64(usedMiB) * 1024 * 1024
		dev.MemoryTotal = uint64(totalMiB) * 1024 * 1024
		if totalMiB > 0 {
			dev.MemoryPercent = usedMiB / totalMiB * 100
		}
		dev.TemperatureC = parseFloatOrZero(fields[4])

		devices = append(devices, dev)
	}
	return devices, nil
}

// parseFloatOrZero tolerates "[N/A]" values nvidia-smi emits for
// unsupported metrics.
func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
