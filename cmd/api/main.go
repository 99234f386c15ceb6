package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/saga-engine/internal/config"
	"github.com/jwebster45206/saga-engine/internal/events"
	"github.com/jwebster45206/saga-engine/internal/handlers"
	"github.com/jwebster45206/saga-engine/internal/logger"
	"github.com/jwebster45206/saga-engine/internal/services"
	"github.com/jwebster45206/saga-engine/internal/storage"
	"github.com/jwebster45206/saga-engine/pkg/ids"
	"github.com/jwebster45206/saga-engine/pkg/library"
	"github.com/jwebster45206/saga-engine/pkg/turn"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Saga Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.Model(),
		"storage_backend", cfg.StorageBackend)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	store, redisClient, err := storage.Open(storageCtx, cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	lib := library.New(store, log)
	if err := lib.Load(storageCtx); err != nil {
		log.Error("Failed to load worlds", "error", err)
		os.Exit(1)
	}

	narr, err := services.NewNarrator(cfg, log)
	if err != nil {
		log.Error("Failed to create narrator", "error", err)
		os.Exit(1)
	}

	notifier := events.Multi{events.NewLogNotifier(log)}
	var subscriber handlers.Subscriber
	if redisClient != nil {
		broadcaster := events.NewBroadcaster(redisClient, log)
		notifier = append(notifier, broadcaster)
		subscriber = broadcaster
	}

	manager, err := turn.NewManager(turn.Options{
		Narrator: narr,
		IDs:      ids.UUID{},
		Library:  lib,
		Notifier: notifier,
		Logger:   log,
		Timeout:  cfg.NarratorTimeout,
	})
	if err != nil {
		log.Error("Failed to create session manager", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.NewRouter(manager, subscriber, log),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: narrator turns and the event stream outlive it
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if closer, ok := narr.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Error("Error closing narrator", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
