package ui

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Funcs returns the template function map shared by both apps.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"formatBytes":     FormatBytes,
		"formatBandwidth": FormatBandwidth,
		"formatDuration":  FormatDuration,
		"formatUptime":    FormatUptime,
		"formatTime":      formatTime,
		"formatTimeAgo":   FormatTimeAgo,
		"truncate":        truncate,
		"percentColor":    PercentColor,
		"percentBadge":    PercentBadge,
		"tempColor":       TempColor,
		"statusBadge":     StatusBadge,
		"markdown":        Markdown,
		"json":            ToJSON,
		"dict":            dict,
		"addf":            func(a, b float64) float64 { return a + b },
		"pct":             pct,
	}
}

// FormatBytes renders a byte count with a binary-size suffix.
func FormatBytes(v any) string {
	b := toFloat(v)
	if b < 0 {
		b = 0
	}
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}
	i := 0
	for b >= 1024 && i < len(units)-1 {
		b /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", b, units[i])
	}
	return fmt.Sprintf("%.1f %s", b, units[i])
}

// FormatBandwidth renders a bytes-per-second rate.
func FormatBandwidth(v any) string {
	return FormatBytes(v) + "/s"
}

// FormatDuration renders a duration as a compact human string, e.g.
// "1m 4s" or "2.3s".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatUptime renders the time elapsed since t as "3d 4h 12m".
func FormatUptime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("15:04:05")
}

// FormatTimeAgo renders how long ago t was, e.g. "12s ago".
func FormatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}

func truncate(n int, s string) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// PercentColor maps a utilization percentage to a DaisyUI progress class.
func PercentColor(p float64) string {
	switch {
	case p >= 90:
		return "progress-error"
	case p >= 70:
		return "progress-warning"
	default:
		return "progress-success"
	}
}

// PercentBadge maps a utilization percentage to a DaisyUI badge class.
func PercentBadge(p float64) string {
	switch {
	case p >= 90:
		return "badge-error"
	case p >= 70:
		return "badge-warning"
	default:
		return "badge-success"
	}
}

// TempColor maps a temperature against its sensor thresholds to a text
// color class.
func TempColor(temp, high, critical float64) string {
	switch {
	case critical > 0 && temp >= critical:
		return "text-error"
	case high > 0 && temp >= high:
		return "text-warning"
	default:
		return "text-success"
	}
}

// StatusBadge maps a job status to a DaisyUI badge class.
func StatusBadge(status string) string {
	switch strings.ToLower(status) {
	case "queued":
		return "badge-neutral"
	case "running":
		return "badge-info"
	case "completed":
		return "badge-success"
	case "failed":
		return "badge-error"
	case "cancelled":
		return "badge-warning"
	default:
		return "badge-ghost"
	}
}

// ToJSON pretty-prints a value for display.
func ToJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal template value")
	}
	return string(b), nil
}

// dict builds a map from alternating key/value arguments, for passing
// multiple values into a nested template.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict requires an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, errors.Errorf("dict key %d is not a string", i)
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// pct renders a float percentage with one decimal.
func pct(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		p = 0
	}
	return fmt.Sprintf("%.1f%%", p)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case uint64:
		return float64(n)
	case uint32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case uint:
		return float64(n)
	default:
		return 0
	}
}
