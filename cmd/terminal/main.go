package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tillsync/internal/config"
	"tillsync/internal/infra"
	"tillsync/internal/repository"
	"tillsync/internal/router"
	"tillsync/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Composition root for the sync machinery: one backend client, one
	// circuit breaker shared by push and pull, one flusher, one puller.
	backend := infra.NewBackendClient(cfg.BackendURL, cfg.DeviceID, time.Duration(cfg.RequestTimeout)*time.Second)
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	queueRepo := repository.NewQueueRepository(db)
	cursorRepo := repository.NewCursorRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)

	dispatcher := worker.NewDispatcher(queueRepo, cfg.DeviceID)

	flusherCfg := worker.FlusherConfig{
		TickInterval:     time.Duration(cfg.FlushInterval) * time.Second,
		BatchSize:        50,
		MaxAttempts:      cfg.QueueMaxAttempts,
		BackoffBase:      time.Duration(cfg.BackoffBaseMillis) * time.Millisecond,
		BackoffCap:       time.Duration(cfg.BackoffCapSeconds) * time.Second,
		BacklogThreshold: cfg.BacklogThreshold,
		Retention:        time.Duration(cfg.QueueRetentionDays) * 24 * time.Hour,
	}
	flusher := worker.NewFlusher(queueRepo, backend, cb, flusherCfg)

	// Entries stranded in_flight by a crash go back to pending before the
	// drain loop starts; the idempotency key makes any re-send safe.
	if err := flusher.Recover(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to recover in-flight queue entries")
	}
	worker.StartFlusher(ctx, flusher)

	puller := worker.NewPuller(db, catalogRepo, cursorRepo, backend, cb, cfg.PullPageSize)
	worker.StartPuller(ctx, puller, time.Duration(cfg.PullInterval)*time.Second)

	r := router.New(cfg, db, dispatcher, flusher, puller, cb)

	srv := &http.Server{
		// Loopback only: the API is consumed by the UI shell on this machine.
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("device", cfg.DeviceID).Msgf("tillsync terminal listening on 127.0.0.1:%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down terminal…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("terminal exited")
}
