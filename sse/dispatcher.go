package sse

import (
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/pulseboard/pulseboard/logger"
)

// HandlerFunc renders the HTML fragments published for one event. Multiple
// fragments are concatenated into a single SSE message so HTMX can apply
// the extras as out-of-band swaps.
type HandlerFunc func() []template.HTML

// Dispatcher maps event names to fragment renderers. Dispatch runs every
// handler registered for the event and publishes the combined output
// through the broadcaster.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	b        *Broadcaster
	logger   logger.Logger
}

// NewDispatcher creates a Dispatcher publishing to b.
func NewDispatcher(b *Broadcaster, l logger.Logger) *Dispatcher {
	if l == nil {
		l = logger.NopLogger{}
	}
	return &Dispatcher{
		handlers: make(map[string][]HandlerFunc),
		b:        b,
		logger:   l,
	}
}

// On registers a handler for the given event name.
func (d *Dispatcher) On(event string, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], fn)
}

// Off removes all handlers for the given event name.
func (d *Dispatcher) Off(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, event)
}

// Dispatch renders the event's fragments and publishes them. A panicking
// handler is logged and skipped so one bad renderer cannot take down the
// stream.
func (d *Dispatcher) Dispatch(event string) {
	d.mu.RLock()
	handlers := d.handlers[event]
	d.mu.RUnlock()
	if len(handlers) == 0 {
		return
	}

	var sb strings.Builder
	for _, fn := range handlers {
		for _, frag := range d.renderSafe(event, fn) {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(string(frag))
		}
	}
	if sb.Len() == 0 {
		return
	}
	d.b.Publish(event, sb.String())
}

func (d *Dispatcher) renderSafe(event string, fn HandlerFunc) (frags []template.HTML) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("sse handler panicked", "event", event, "panic", fmt.Sprint(r))
			frags = nil
		}
	}()
	return fn()
}
