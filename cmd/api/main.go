package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parley-engine/parley/internal/config"
	"github.com/parley-engine/parley/internal/game"
	"github.com/parley-engine/parley/internal/handlers"
	"github.com/parley-engine/parley/internal/logger"
	"github.com/parley-engine/parley/internal/middleware"
	"github.com/parley-engine/parley/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Parley API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	// Static content is loaded once and shared by reference. A content
	// error aborts startup.
	catalog, err := store.LoadCatalog(storageCtx)
	if err != nil {
		log.Error("Failed to load card catalog", "error", err)
		os.Exit(1)
	}
	templates, err := store.LoadSceneTemplates(storageCtx)
	if err != nil {
		log.Error("Failed to load scene templates", "error", err)
		os.Exit(1)
	}

	runtime := game.NewRuntime(log, catalog, templates, store)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	cardsHandler := handlers.NewCardsHandler(catalog, log)
	mux.Handle("/v1/cards", cardsHandler)
	mux.Handle("/v1/cards/", cardsHandler)

	scenariosHandler := handlers.NewScenariosHandler(store, log)
	mux.Handle("/v1/scenarios", scenariosHandler)

	gamesHandler := handlers.NewGamesHandler(runtime, store, log)
	mux.Handle("/v1/games", gamesHandler)
	mux.Handle("/v1/games/", gamesHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
