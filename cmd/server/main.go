package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/roomrelay/internal/adapter/httpserver"
	"github.com/pscheid92/roomrelay/internal/app"
	"github.com/pscheid92/roomrelay/internal/broadcast"
	"github.com/pscheid92/roomrelay/internal/platform/config"
	"github.com/pscheid92/roomrelay/internal/platform/logging"
	"github.com/pscheid92/roomrelay/internal/platform/version"
	"github.com/pscheid92/roomrelay/internal/registry"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runBackground(ctx context.Context, wg *sync.WaitGroup, sweeper *app.Sweeper, publisher *app.Publisher) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()
}

func runGracefulShutdown(srv *httpserver.Server, engine *broadcast.Engine, stopBackground func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopBackground()
		engine.CloseAll("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"version", version.Get().Version,
		"broadcast_on_update", cfg.BroadcastOnUpdate,
		"admin_enabled", cfg.AdminKey != "",
	)

	reg := registry.New(clock)
	engine := broadcast.NewEngine(reg)
	dispatcher := app.NewDispatcher(reg, engine, app.DispatcherConfig{
		AdminKey:          cfg.AdminKey,
		BroadcastOnUpdate: cfg.BroadcastOnUpdate,
	})
	sweeper := app.NewSweeper(reg, clock, cfg.SweepInterval, cfg.StaleAfter)
	publisher := app.NewPublisher(reg, engine, clock, cfg.PublishInterval)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	runBackground(ctx, &wg, sweeper, publisher)
	stopBackground := func() {
		cancel()
		wg.Wait()
	}

	srv := httpserver.NewServer(cfg, clock, reg, dispatcher)
	done := runGracefulShutdown(srv, engine, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		stopBackground()
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
