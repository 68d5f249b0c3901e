package monitors

import (
	"context"
	"sync"
	"time"

	"github.com/pulseboard/pulseboard/logger"
)

// Component identifies one monitored subsystem. Component names double as
// SSE event names for the dashboard stream.
type Component string

const (
	ComponentCPU     Component = "cpu"
	ComponentMemory  Component = "memory"
	ComponentDisk    Component = "disk"
	ComponentNetwork Component = "network"
	ComponentProcess Component = "process"
	ComponentGPU     Component = "gpu"
	ComponentThermal Component = "thermal"
)

// Components lists every component in display order.
var Components = []Component{
	ComponentCPU, ComponentMemory, ComponentDisk, ComponentNetwork,
	ComponentProcess, ComponentGPU, ComponentThermal,
}

// Interval bounds accepted by SetInterval.
const (
	MinInterval = 1 * time.Second
	MaxInterval = 30 * time.Second
)

// DefaultIntervals returns the default per-component refresh intervals.
func DefaultIntervals() map[Component]time.Duration {
	return map[Component]time.Duration{
		ComponentCPU:     2 * time.Second,
		ComponentMemory:  2 * time.Second,
		ComponentDisk:    10 * time.Second,
		ComponentNetwork: 2 * time.Second,
		ComponentProcess: 5 * time.Second,
		ComponentGPU:     3 * time.Second,
		ComponentThermal: 5 * time.Second,
	}
}

// Poller runs one sampling loop per component and notifies the registered
// callback after each successful sample. The latest snapshot of every
// component is kept for page renders.
type Poller struct {
	cpu     *CPUCollector
	memory  *MemoryCollector
	disk    *DiskCollector
	network *NetworkCollector
	process *ProcessCollector
	gpu     *GPUCollector
	thermal *ThermalCollector

	logger logger.Logger

	mu        sync.RWMutex
	intervals map[Component]time.Duration
	onUpdate  func(Component)

	snapMu      sync.RWMutex
	cpuSnap     CPUInfo
	memorySnap  MemoryInfo
	diskSnap    []PartitionUsage
	networkSnap []InterfaceStat
	processSnap ProcessInfo
	gpuSnap     GPUInfo
	thermalSnap []ThermalSensor

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a Poller with the given intervals; nil means defaults.
func NewPoller(intervals map[Component]time.Duration, l logger.Logger) *Poller {
	if l == nil {
		l = logger.NopLogger{}
	}
	merged := DefaultIntervals()
	for c, d := range intervals {
		merged[c] = d
	}
	return &Poller{
		cpu:       NewCPUCollector(),
		memory:    NewMemoryCollector(),
		disk:      NewDiskCollector(l),
		network:   NewNetworkCollector(),
		process:   NewProcessCollector(),
		gpu:       NewGPUCollector(),
		thermal:   NewThermalCollector(),
		logger:    l,
		intervals: merged,
	}
}

// SetOnUpdate registers the callback fired after each component sample.
// Must be called before Start.
func (p *Poller) SetOnUpdate(fn func(Component)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Interval returns a component's current refresh interval.
func (p *Poller) Interval(c Component) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.intervals[c]
}

// Intervals returns a copy of all refresh intervals.
func (p *Poller) Intervals() map[Component]time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Component]time.Duration, len(p.intervals))
	for c, d := range p.intervals {
		out[c] = d
	}
	return out
}

// SetInterval updates a component's refresh interval, clamped to the
// accepted bounds. The change applies from the component's next tick.
func (p *Poller) SetInterval(c Component, d time.Duration) {
	if d < MinInterval {
		d = MinInterval
	}
	if d > MaxInterval {
		d = MaxInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.intervals[c]; ok {
		p.intervals[c] = d
	}
}

// Start samples every component once (so the first page render has data)
// and launches the per-component polling loops.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	for _, c := range Components {
		p.collect(c)
	}

	for _, c := range Components {
		c := c
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.loop(ctx, c)
		}()
	}
}

// Stop terminates the polling loops and waits for them to exit.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context, c Component) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval(c)):
			if p.collect(c) {
				p.notify(c)
			}
		}
	}
}

// collect samples one component into its snapshot slot. A failed sample is
// logged and the previous snapshot kept.
func (p *Poller) collect(c Component) bool {
	var err error
	switch c {
	case ComponentCPU:
		var snap CPUInfo
		if snap, err = p.cpu.Collect(); err == nil {
			p.snapMu.Lock()
			p.cpuSnap = snap
			p.snapMu.Unlock()
		}
	case ComponentMemory:
		var snap MemoryInfo
		if snap, err = p.memory.Collect(); err == nil {
			p.snapMu.Lock()
			p.memorySnap = snap
			p.snapMu.Unlock()
		}
	case ComponentDisk:
		var snap []PartitionUsage
		if snap, err = p.disk.Collect(); err == nil {
			p.snapMu.Lock()
			p.diskSnap = snap
			p.snapMu.Unlock()
		}
	case ComponentNetwork:
		var snap []InterfaceStat
		if snap, err = p.network.Collect(); err == nil {
			p.snapMu.Lock()
			p.networkSnap = snap
			p.snapMu.Unlock()
		}
	case ComponentProcess:
		var snap ProcessInfo
		if snap, err = p.process.Collect(); err == nil {
			p.snapMu.Lock()
			p.processSnap = snap
			p.snapMu.Unlock()
		}
	case ComponentGPU:
		var snap GPUInfo
		if snap, err = p.gpu.Collect(); err == nil {
			p.snapMu.Lock()
			p.gpuSnap = snap
			p.snapMu.Unlock()
		}
	case ComponentThermal:
		var snap []ThermalSensor
		if snap, err = p.thermal.Collect(); err == nil {
			p.snapMu.Lock()
			p.thermalSnap = snap
			p.snapMu.Unlock()
		}
	}
	if err != nil {
		p.logger.Warn("monitor sample failed", "component", string(c), "error", err.Error())
		return false
	}
	return true
}

func (p *Poller) notify(c Component) {
	p.mu.RLock()
	fn := p.onUpdate
	p.mu.RUnlock()
	if fn != nil {
		fn(c)
	}
}

// Snapshot accessors.

func (p *Poller) CPU() CPUInfo {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.cpuSnap
}

func (p *Poller) Memory() MemoryInfo {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.memorySnap
}

func (p *Poller) Disk() []PartitionUsage {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.diskSnap
}

func (p *Poller) Network() []InterfaceStat {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.networkSnap
}

func (p *Poller) Process() ProcessInfo {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.processSnap
}

func (p *Poller) GPU() GPUInfo {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.gpuSnap
}

func (p *Poller) Thermal() []ThermalSensor {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.thermalSnap
}
