package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"zero", uint64(0), "0 B"},
		{"bytes", 512, "512 B"},
		{"kibibytes", uint64(2048), "2.0 KiB"},
		{"mebibytes", uint64(5 * 1024 * 1024), "5.0 MiB"},
		{"gibibytes", uint64(3 * 1024 * 1024 * 1024), "3.0 GiB"},
		{"float rate", 1536.0, "1.5 KiB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatBytes(tt.in))
		})
	}
}

func TestFormatBandwidth(t *testing.T) {
	require.Equal(t, "2.0 KiB/s", FormatBandwidth(2048.0))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{250 * time.Millisecond, "250ms"},
		{2300 * time.Millisecond, "2.3s"},
		{90 * time.Second, "1m 30s"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatDuration(tt.in))
	}
}

func TestFormatUptime(t *testing.T) {
	require.Equal(t, "unknown", FormatUptime(time.Time{}))

	boot := time.Now().Add(-(26*time.Hour + 10*time.Minute))
	require.Equal(t, "1d 2h 10m", FormatUptime(boot))
}

func TestPercentClasses(t *testing.T) {
	require.Equal(t, "progress-success", PercentColor(10))
	require.Equal(t, "progress-warning", PercentColor(75))
	require.Equal(t, "progress-error", PercentColor(95))

	require.Equal(t, "badge-success", PercentBadge(69.9))
	require.Equal(t, "badge-warning", PercentBadge(70))
	require.Equal(t, "badge-error", PercentBadge(90))
}

func TestTempColor(t *testing.T) {
	require.Equal(t, "text-success", TempColor(50, 85, 95))
	require.Equal(t, "text-warning", TempColor(86, 85, 95))
	require.Equal(t, "text-error", TempColor(96, 85, 95))
	// Unknown thresholds never alarm.
	require.Equal(t, "text-success", TempColor(90, 0, 0))
}

func TestStatusBadge(t *testing.T) {
	tests := map[string]string{
		"queued":    "badge-neutral",
		"running":   "badge-info",
		"completed": "badge-success",
		"failed":    "badge-error",
		"cancelled": "badge-warning",
		"mystery":   "badge-ghost",
	}
	for status, want := range tests {
		require.Equal(t, want, StatusBadge(status), status)
	}
}

func TestMarkdownSanitizes(t *testing.T) {
	out := string(Markdown("## Hello\n\n<script>alert(1)</script>**bold**"))
	require.Contains(t, out, "<h2")
	require.Contains(t, out, "<strong>bold</strong>")
	require.NotContains(t, out, "<script>")
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate(10, "short"))
	got := truncate(10, "a very long process name")
	require.Len(t, got, 10)
	require.True(t, strings.HasSuffix(got, "..."))
}

func TestDict(t *testing.T) {
	m, err := dict("a", 1, "b", "two")
	require.NoError(t, err)
	require.Equal(t, 1, m["a"])
	require.Equal(t, "two", m["b"])

	_, err = dict("odd")
	require.Error(t, err)

	_, err = dict(1, "not-a-string-key")
	require.Error(t, err)
}
