// Command jobqueue serves the background-job demo app.
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
	"github.com/pulseboard/pulseboard/jobs"
	"github.com/pulseboard/pulseboard/launch"
	"github.com/pulseboard/pulseboard/logger"
	"github.com/pulseboard/pulseboard/sse"
	"github.com/pulseboard/pulseboard/ui/jobqueue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "jobqueue:", err)
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

	store := jobs.NewStore()
	runner := jobs.NewRunner(store,
		jobs.WithRunnerLogger(log),
		jobs.WithHooks(jobs.NewLoggingHooks(log)),
	)

	router, err := jobqueue.New(store, runner, broadcaster, dispatcher, &jobqueue.Config{Logger: log})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("job queue listening", "addr", cfg.Addr(), "debug", cfg.Debug)
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
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	return runner.Close(closeCtx)
}
