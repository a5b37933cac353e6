package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lecternhq/lectern/internal/annotations"
	"github.com/lecternhq/lectern/internal/api"
	"github.com/lecternhq/lectern/internal/config"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Annotation persistence: remote store when configured, otherwise
	// in-process memory.
	var store annotations.Store
	var client *annotations.Client
	if cfg.AnnotationStoreURL != "" {
		client = annotations.NewClient(cfg.AnnotationStoreURL, cfg.AnnotationStoreAPIKey)
		store = client
	} else {
		log.Warn("no annotation store configured, annotations will not survive restarts")
		store = annotations.NewMemoryStore()
	}

	// nil engine: utterances go to connected surfaces over the websocket.
	srv := api.NewServer(log, cfg, store, nil)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if client != nil {
			client.Close()
		}
	}()

	log.Info("starting lectern", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
