// Command sysmon serves the system-monitoring dashboard and opens it in
// the user's browser. It is the main entrypoint packaged into the AppImage.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pulseboard/pulseboard/config"
	"github.com/pulseboard/pulseboard/launch"
	"github.com/pulseboard/pulseboard/logger"
	"github.com/pulseboard/pulseboard/monitors"
	"github.com/pulseboard/pulseboard/sse"
	"github.com/pulseboard/pulseboard/ui/sysmon"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sysmon:", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; the AppImage sets real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewZapLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broadcaster := sse.NewBroadcaster(sse.WithLogger(log))
	defer broadcaster.Close()
	dispatcher := sse.NewDispatcher(broadcaster, log)

	poller := monitors.NewPoller(nil, log)

	router, err := sysmon.New(poller, broadcaster, dispatcher, &sysmon.Config{Logger: log})
	if err != nil {
		return err
	}

	poller.Start(ctx)
	defer poller.Stop()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", cfg.Addr(), "debug", cfg.Debug)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go launch.Browser(ctx, cfg.Browser, cfg.URL(), log)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
