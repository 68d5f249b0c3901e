// Package config loads runtime configuration from the environment.
//
// The launcher environment variables (FASTHTML_HOST, FASTHTML_PORT,
// FASTHTML_BROWSER, DEBUG, APPIMAGE) are kept compatible with the AppImage
// AppRun script shipped under appimage/.
package config

import (
	"fmt"
	"net"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Browser launch modes accepted in FASTHTML_BROWSER.
const (
	BrowserDefault = "default"
	BrowserApp     = "app"
	BrowserNone    = "none"
)

// Config holds the process-wide configuration.
type Config struct {
	// Host is the address the HTTP server binds to.
	Host string `env:"FASTHTML_HOST" envDefault:"127.0.0.1"`

	// Port is the TCP port to listen on. Zero means "pick a free port",
	// resolved by Load.
	Port int `env:"FASTHTML_PORT" envDefault:"0"`

	// Browser controls how the UI is opened on startup:
	// "default" (system browser), "app" (standalone chromium window),
	// or "none" (server only).
	Browser string `env:"FASTHTML_BROWSER" envDefault:"default"`

	// Debug enables development logging.
	Debug bool `env:"DEBUG" envDefault:"false"`

	// AppImage is set by the AppImage runtime to the image path. When
	// non-empty the process runs from a read-only mount and must use a
	// temporary working directory.
	AppImage string `env:"APPIMAGE"`

	// WorkDir is the writable working directory, resolved by Load.
	WorkDir string `env:"-"`
}

// Load parses the environment into a Config, resolving a free port when
// FASTHTML_PORT is zero and switching to a temporary working directory
// when running from an AppImage.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	switch cfg.Browser {
	case BrowserDefault, BrowserApp, BrowserNone:
	default:
		return nil, errors.Errorf("invalid FASTHTML_BROWSER value %q", cfg.Browser)
	}

	if cfg.Port == 0 {
		port, err := FreePort()
		if err != nil {
			return nil, errors.Wrap(err, "find free port")
		}
		cfg.Port = port
	}

	if cfg.AppImage != "" {
		dir, err := os.MkdirTemp("", "pulseboard-")
		if err != nil {
			return nil, errors.Wrap(err, "create work dir")
		}
		if err := os.Chdir(dir); err != nil {
			return nil, errors.Wrap(err, "enter work dir")
		}
		cfg.WorkDir = dir
	} else {
		dir, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "resolve work dir")
		}
		cfg.WorkDir = dir
	}

	return cfg, nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL returns the browsable base URL of the server.
func (c *Config) URL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}

// FreePort asks the kernel for an available TCP port.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
