package sse

import (
	"html/template"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseboard/pulseboard/logger"
)

func TestDispatchCombinesFragments(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	d := NewDispatcher(b, logger.NopLogger{})

	d.On("queue-updated", func() []template.HTML {
		return []template.HTML{"<table></table>", "<div id=\"stats\"></div>"}
	})

	s := b.Subscribe()
	d.Dispatch("queue-updated")

	msgs := drain(s)
	require.Len(t, msgs, 1)
	require.Equal(t, "queue-updated", msgs[0].Event)
	require.Equal(t, "<table></table>\n<div id=\"stats\"></div>", msgs[0].Data)
}

func TestDispatchUnknownEventPublishesNothing(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	d := NewDispatcher(b, nil)

	s := b.Subscribe()
	d.Dispatch("nope")
	require.Empty(t, drain(s))
}

func TestDispatchSurvivesPanickingHandler(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	d := NewDispatcher(b, logger.NopLogger{})

	d.On("cpu", func() []template.HTML { panic("boom") })
	d.On("cpu", func() []template.HTML { return []template.HTML{"<div>ok</div>"} })

	s := b.Subscribe()
	d.Dispatch("cpu")

	msgs := drain(s)
	require.Len(t, msgs, 1)
	require.Equal(t, "<div>ok</div>", msgs[0].Data)
}

func TestOffRemovesHandlers(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()
	d := NewDispatcher(b, nil)

	d.On("gone", func() []template.HTML { return []template.HTML{"<p></p>"} })
	d.Off("gone")

	s := b.Subscribe()
	d.Dispatch("gone")
	require.Empty(t, drain(s))
}
