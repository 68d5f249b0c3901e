package monitors

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Temperature thresholds used for display coloring when the zone does not
// publish its own trip points.
const (
	DefaultTempHighC     = 85
	DefaultTempCriticalC = 95
)

// ThermalSensor is one thermal zone sample.
type ThermalSensor struct {
	Label     string  `json:"label"`
	TempC     float64 `json:"temp_c"`
	HighC     float64 `json:"high_c"`
	CriticalC float64 `json:"critical_c"`
}

// ThermalCollector reads /sys/class/thermal zone temperatures.
type ThermalCollector struct {
	sysRoot string
}

// NewThermalCollector creates a collector reading the real sysfs.
func NewThermalCollector() *ThermalCollector {
	return &ThermalCollector{sysRoot: "/sys"}
}

// Collect returns every readable thermal zone. Hosts without thermal zones
// (most VMs) return an empty slice and no error.
func (c *ThermalCollector) Collect() ([]ThermalSensor, error) {
	base := filepath.Join(c.sysRoot, "class/thermal")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, nil
	}

	var sensors []ThermalSensor
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "thermal_zone") {
			continue
		}
		zone := filepath.Join(base, e.Name())

		temp, err := readMilliC(filepath.Join(zone, "temp"))
		if err != nil {
			continue
		}

		label := e.Name()
		if raw, err := os.ReadFile(filepath.Join(zone, "type")); err == nil {
			label = strings.TrimSpace(string(raw))
		}

		sensor := ThermalSensor{
			Label:     label,
			TempC:     temp,
			HighC:     DefaultTempHighC,
			CriticalC: DefaultTempCriticalC,
		}
		// Trip points, when present, override the defaults.
		if high, err := readMilliC(filepath.Join(zone, "trip_point_0_temp")); err == nil && high > 0 {
			sensor.HighC = high
		}

		sensors = append(sensors, sensor)
	}

	sort.Slice(sensors, func(i, j int) bool { return sensors[i].Label < sensors[j].Label })
	return sensors, nil
}

func readMilliC(path string) (float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, err
	}
	return milli / 1000, nil
}
