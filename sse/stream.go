package sse

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pulseboard/pulseboard/logger"
)

// DefaultKeepAlive is the interval between keep-alive comments written to
// idle streams so proxies do not drop the connection.
const DefaultKeepAlive = 15 * time.Second

// StreamOptions configures a Stream call.
type StreamOptions struct {
	// Filter, when non-nil, limits the stream to messages it returns true
	// for. Nil streams everything.
	Filter func(Message) bool

	// KeepAlive overrides the keep-alive comment interval.
	KeepAlive time.Duration

	// Logger for connection lifecycle events.
	Logger logger.Logger
}

// Stream subscribes to the broadcaster and writes matching messages to the
// response as server-sent events until the client disconnects or the
// broadcaster shuts down.
func Stream(w http.ResponseWriter, r *http.Request, b *Broadcaster, opts *StreamOptions) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return fmt.Errorf("sse: response writer does not support flushing")
	}

	if opts == nil {
		opts = &StreamOptions{}
	}
	keepAlive := opts.KeepAlive
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger{}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := b.Subscribe()
	defer sub.Close()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	log.Debug("sse stream opened", "path", r.URL.Path)
	defer log.Debug("sse stream closed", "path", r.URL.Path)

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return err
			}
			flusher.Flush()
		case m, open := <-sub.Messages():
			if !open {
				return nil
			}
			if opts.Filter != nil && !opts.Filter(m) {
				continue
			}
			if err := WriteMessage(w, m); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

// WriteMessage encodes one message as an SSE frame. Multi-line payloads are
// split across data: lines per the SSE wire format.
func WriteMessage(w io.Writer, m Message) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "id: %d\n", m.ID)
	if m.Event != "" {
		fmt.Fprintf(&sb, "event: %s\n", m.Event)
	}
	for _, line := range strings.Split(m.Data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// EventFilter returns a filter matching a single event name.
func EventFilter(event string) func(Message) bool {
	return func(m Message) bool { return m.Event == event }
}

// PrefixFilter returns a filter matching every event name with the given
// prefix.
func PrefixFilter(prefix string) func(Message) bool {
	return func(m Message) bool { return strings.HasPrefix(m.Event, prefix) }
}
