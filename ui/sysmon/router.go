// Package sysmon serves the system-monitoring dashboard: a single page of
// live cards (CPU, memory, disk, network, processes, GPU, thermal) refreshed
// over one server-sent-events stream.
package sysmon

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/logger"
	"github.com/pulseboard/pulseboard/monitors"
	"github.com/pulseboard/pulseboard/sse"
	"github.com/pulseboard/pulseboard/ui"
)

//go:embed templates
var templatesFS embed.FS

// Config carries the optional router settings.
type Config struct {
	Logger logger.Logger
}

// Router wires the monitor poller to HTTP handlers and the SSE dispatcher.
type Router struct {
	poller      *monitors.Poller
	broadcaster *sse.Broadcaster
	dispatcher  *sse.Dispatcher
	renderer    *ui.Renderer
	logger      logger.Logger
}

// New creates the dashboard router and registers one dispatcher handler per
// monitored component. Each component's samples are pushed to the stream as
// an SSE event named after the component.
func New(poller *monitors.Poller, b *sse.Broadcaster, d *sse.Dispatcher, cfg *Config) (*Router, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	l := cfg.Logger
	if l == nil {
		l = logger.NopLogger{}
	}

	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, errors.Wrap(err, "sysmon templates")
	}
	renderer, err := ui.NewRenderer(sub, "*.html", "fragments/*.html")
	if err != nil {
		return nil, err
	}

	rt := &Router{
		poller:      poller,
		broadcaster: b,
		dispatcher:  d,
		renderer:    renderer,
		logger:      l,
	}
	rt.registerEvents()
	return rt, nil
}

// registerEvents binds each component to its card fragment and routes
// poller updates into the dispatcher.
func (rt *Router) registerEvents() {
	for _, c := range monitors.Components {
		c := c
		rt.dispatcher.On(string(c), func() []template.HTML {
			return []template.HTML{
				rt.renderer.MustFragment(cardTemplate(c), rt.componentData(c)),
			}
		})
	}
	rt.poller.SetOnUpdate(func(c monitors.Component) {
		rt.dispatcher.Dispatch(string(c))
	})
}

// Handler returns the dashboard HTTP handler.
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.handleDashboard)
	mux.HandleFunc("GET /fragments/{card}", rt.handleFragment)
	mux.HandleFunc("GET /stream", rt.handleStream)
	mux.HandleFunc("POST /settings/intervals", rt.handleSetIntervals)
	return ui.RecoveryMiddleware(mux, rt.logger)
}

func cardTemplate(c monitors.Component) string {
	return "fragments/" + string(c) + "-card.html"
}

func (rt *Router) componentData(c monitors.Component) any {
	switch c {
	case monitors.ComponentCPU:
		return rt.poller.CPU()
	case monitors.ComponentMemory:
		return rt.poller.Memory()
	case monitors.ComponentDisk:
		return rt.poller.Disk()
	case monitors.ComponentNetwork:
		return rt.poller.Network()
	case monitors.ComponentProcess:
		return rt.poller.Process()
	case monitors.ComponentGPU:
		return rt.poller.GPU()
	case monitors.ComponentThermal:
		return rt.poller.Thermal()
	}
	return nil
}
