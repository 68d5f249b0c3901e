package sysmon

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pulseboard/pulseboard/monitors"
	"github.com/pulseboard/pulseboard/sse"
	"github.com/pulseboard/pulseboard/ui"
)

// dashboardData is the full-page render payload.
type dashboardData struct {
	System    monitors.SystemInfo
	CPU       monitors.CPUInfo
	Memory    monitors.MemoryInfo
	Disk      []monitors.PartitionUsage
	Network   []monitors.InterfaceStat
	Process   monitors.ProcessInfo
	GPU       monitors.GPUInfo
	Thermal   []monitors.ThermalSensor
	Intervals []intervalSetting
}

// intervalSetting is one row of the refresh-settings form.
type intervalSetting struct {
	Component string
	Seconds   int
}

func (rt *Router) intervalSettings() []intervalSetting {
	intervals := rt.poller.Intervals()
	out := make([]intervalSetting, 0, len(monitors.Components))
	for _, c := range monitors.Components {
		out = append(out, intervalSetting{
			Component: string(c),
			Seconds:   int(intervals[c] / time.Second),
		})
	}
	return out
}

func (rt *Router) handleDashboard(w http.ResponseWriter, r *http.Request) {
	system, err := monitors.System()
	if err != nil {
		rt.logger.Warn("system info unavailable", "error", err.Error())
	}

	data := dashboardData{
		System:    system,
		CPU:       rt.poller.CPU(),
		Memory:    rt.poller.Memory(),
		Disk:      rt.poller.Disk(),
		Network:   rt.poller.Network(),
		Process:   rt.poller.Process(),
		GPU:       rt.poller.GPU(),
		Thermal:   rt.poller.Thermal(),
		Intervals: rt.intervalSettings(),
	}
	if err := rt.renderer.Page(w, ui.PageData{Title: "System Monitor", Data: data}); err != nil {
		rt.logger.Error("render dashboard", "error", err.Error())
	}
}

// handleFragment serves a single card for ad-hoc HTMX refreshes, e.g.
// GET /fragments/cpu-card.
func (rt *Router) handleFragment(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("card"), "-card")
	if !ok {
		http.NotFound(w, r)
		return
	}
	c := monitors.Component(name)
	data := rt.componentData(c)
	if data == nil {
		http.NotFound(w, r)
		return
	}
	if err := rt.renderer.WriteFragment(w, cardTemplate(c), data); err != nil {
		rt.logger.Error("render fragment", "card", name, "error", err.Error())
	}
}

func (rt *Router) handleStream(w http.ResponseWriter, r *http.Request) {
	_ = sse.Stream(w, r, rt.broadcaster, &sse.StreamOptions{Logger: rt.logger})
}

// handleSetIntervals applies the refresh-settings form. Values are seconds
// per component; out-of-range values are clamped by the poller.
func (rt *Router) handleSetIntervals(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	for _, c := range monitors.Components {
		raw := r.PostFormValue(string(c))
		if raw == "" {
			continue
		}
		secs, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "interval must be a number of seconds", http.StatusBadRequest)
			return
		}
		rt.poller.SetInterval(c, time.Duration(secs)*time.Second)
	}
	rt.logger.Info("refresh intervals updated")
	if err := rt.renderer.WriteFragment(w, "fragments/settings-form.html", rt.intervalSettings()); err != nil {
		rt.logger.Error("render settings form", "error", err.Error())
	}
}
