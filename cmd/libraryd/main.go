// cmd/libraryd/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"libraryos/internal/config"
	"libraryos/internal/library"
	"libraryos/internal/logging"
	"libraryos/internal/storage"
	"libraryos/internal/telemetry"
)

func main() {
	cfg, err := config.Load(os.Getenv("LIBRARY_CONFIG"))
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.WithFields(logrus.Fields{"env": cfg.Env, "store": cfg.Store.Driver}).Info("Starting library server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.WithError(err).Fatal("Failed to set up telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}
	defer store.Close()

	svc := library.NewService(store, library.WithLogger(log))
	if err := svc.Load(ctx); err != nil {
		log.WithError(err).Fatal("Failed to load library")
	}

	scheduler, err := library.NewScheduler(svc, log, cfg.Jobs.OverdueSchedule)
	if err != nil {
		log.WithError(err).Fatal("Failed to schedule overdue report")
	}
	scheduler.Start()

	tokens := library.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      library.NewHandler(svc, tokens, log).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP shutdown incomplete")
	}
	<-scheduler.Stop().Done()

	if err := svc.Flush(shutdownCtx); err != nil {
		log.WithError(err).Error("Final flush failed")
	}
	log.Info("Library server stopped")
}
