package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/api"
	"solar-sync-backend/internal/scheduler"
	"solar-sync-backend/internal/syncer"
)

func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}

	var notifier syncer.Notifier
	pool := a.workerPool()
	if pool != nil {
		notifier = pool
	} else {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	orch, err := a.orchestrator(notifier)
	if err != nil {
		return err
	}

	// Started before the scheduler, so a run's notification always finds a worker.
	if pool != nil {
		pool.Start(ctx)
	}
	sched := scheduler.NewService(cfg.Scheduler, orch)
	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run(ctx) }()

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	handler := api.NewHandler(a.store, orch, a.client.Limiter(), &webpush.Options{VAPIDPublicKey: cfg.Push.PublicKey}, cache.New(ttl, 2*ttl))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server, a.registry),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Println("Shutdown signal received, stopping services...")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	case err := <-schedErr:
		if err != nil {
			return err
		}
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}
