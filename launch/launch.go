// Package launch opens the user's browser on the freshly started server,
// matching the behavior the AppImage launcher expects.
package launch

import (
	"context"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/pulseboard/pulseboard/config"
	"github.com/pulseboard/pulseboard/logger"
)

// startupDelay gives the HTTP listener a moment to come up before the
// browser fires its first request.
const startupDelay = 500 * time.Millisecond

// appBrowsers are tried in order for "app" mode. Chromium-based browsers
// get a dedicated --app window; firefox falls back to a plain new window.
var appBrowsers = []struct {
	binary string
	args   func(url string) []string
}{
	{"google-chrome", func(url string) []string { return []string{"--app=" + url} }},
	{"chromium", func(url string) []string { return []string{"--app=" + url} }},
	{"chromium-browser", func(url string) []string { return []string{"--app=" + url} }},
	{"firefox", func(url string) []string { return []string{"--new-window", url} }},
}

// lookPath and startCommand are swapped in tests.
var (
	lookPath     = exec.LookPath
	startCommand = start
)

// Browser opens url according to mode after a short delay. In "none" mode
// it only logs the URL. A failed launch is logged, never fatal: the server
// keeps running and the user can open the URL by hand.
func Browser(ctx context.Context, mode, url string, l logger.Logger) {
	if l == nil {
		l = logger.NopLogger{}
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	if mode == config.BrowserNone {
		l.Info("server ready", "url", url)
		return
	}

	var err error
	switch mode {
	case config.BrowserApp:
		err = openApp(ctx, url)
	default:
		err = startCommand(ctx, "xdg-open", url)
	}
	if err != nil {
		l.Warn("could not open browser", "url", url, "error", err.Error())
		return
	}
	l.Info("browser opened", "url", url)
}

// openApp tries the known browsers for a standalone app window.
func openApp(ctx context.Context, url string) error {
	for _, b := range appBrowsers {
		if _, err := lookPath(b.binary); err != nil {
			continue
		}
		return startCommand(ctx, b.binary, b.args(url)...)
	}
	// No dedicated browser found; hand off to the desktop default.
	return startCommand(ctx, "xdg-open", url)
}

func start(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "start %s", binary)
	}
	// Detach; the browser outlives us and we never wait on it.
	go func() { _ = cmd.Wait() }()
	return nil
}
