// Package main implements the Drone Relay Container entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drone-relay/drc/internal/api"
	"github.com/drone-relay/drc/internal/audit"
	"github.com/drone-relay/drc/internal/auth"
	"github.com/drone-relay/drc/internal/config"
	"github.com/drone-relay/drc/internal/mailbox"
	"github.com/drone-relay/drc/internal/storage"
)

func main() {
	log.Printf("Starting Drone Relay Container v%s", api.Version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully")
	if cfg.AppToken == "CHANGE_ME" {
		log.Println("WARNING: DRC_APP_TOKEN is the default placeholder; set a real secret")
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	log.Printf("Storage initialised at %s", cfg.DBPath)

	auditLogger, err := audit.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to initialize audit logger: %v", err)
	}
	log.Println("Audit logger initialized")

	position := mailbox.NewPositionMailbox(store, cfg.MaxPositionAge, cfg.MaxAccuracyM)
	command := mailbox.NewCommandMailbox(store, cfg.CommandWindow)
	status := mailbox.NewStatusLog(store, cfg.StatusRetention)

	server := api.NewServer(api.Options{
		Position:          position,
		Command:           command,
		Status:            status,
		Audit:             auditLogger,
		Store:             store,
		Auth:              auth.NewMiddleware(cfg.AppToken),
		StatusReadDefault: cfg.StatusReadDefault,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	})
	log.Println("API server created")

	log.Printf("Starting HTTP server on %s", cfg.Addr)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Addr); err != nil {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	log.Printf("Drone Relay Container started successfully")
	log.Printf("Health endpoint: http://localhost%s/api/v1/health", cfg.Addr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		log.Printf("Server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Printf("Error stopping HTTP server: %v", err)
	} else {
		log.Println("HTTP server stopped gracefully")
	}

	if err := auditLogger.Close(); err != nil {
		log.Printf("Error closing audit logger: %v", err)
	}
	log.Println("Audit logger closed")

	if err := store.Close(); err != nil {
		log.Printf("Error closing storage: %v", err)
	}
	log.Println("Storage closed")

	log.Println("Drone Relay Container shutdown complete")
}
