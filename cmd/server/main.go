package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bcnelson/console-cache/internal/api"
	"github.com/bcnelson/console-cache/internal/auth"
	"github.com/bcnelson/console-cache/internal/backend"
	"github.com/bcnelson/console-cache/internal/config"
	"github.com/bcnelson/console-cache/internal/filter"
	"github.com/bcnelson/console-cache/internal/permission"
	"github.com/bcnelson/console-cache/internal/service"
	"github.com/bcnelson/console-cache/internal/storage"
	"github.com/bcnelson/console-cache/internal/storage/memory"
	"github.com/bcnelson/console-cache/internal/storage/sql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize the KV mirror
	var kv storage.Storage
	switch cfg.Database.Driver {
	case "memory":
		kv = memory.New()
	default:
		// Create data directory if needed (for SQLite)
		if cfg.Database.Driver == "sqlite3" {
			if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
				log.Fatalf("Failed to create data directory: %v", err)
			}
		}
		store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		kv = store
	}
	defer kv.Close()

	// Initialize backend client (or file shim for testing)
	var client backend.Client
	if cfg.UseFileShim() {
		log.Printf("Using file shim for backend API: %s", cfg.Backend.FileShim)
		shim, err := backend.NewFileShim(cfg.Backend.FileShim)
		if err != nil {
			log.Fatalf("Failed to load file shim: %v", err)
		}
		client = shim
	} else {
		client = backend.NewHTTPClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.Timeout)
	}

	// Initialize principal verification
	var verifier auth.Verifier
	if cfg.Auth.OIDCEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		v, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuerURL, cfg.Auth.OIDCClientID, cfg.Auth.AllowedDomains())
		cancel()
		if err != nil {
			log.Fatalf("Failed to initialize OIDC: %v", err)
		}
		verifier = v
		log.Printf("OIDC authentication enabled (issuer: %s)", cfg.Auth.OIDCIssuerURL)
	} else {
		tokens, err := cfg.Auth.Tokens()
		if err != nil {
			log.Fatalf("Invalid API tokens: %v", err)
		}
		if len(tokens) == 0 {
			log.Printf("Warning: no API tokens configured, every API request will be rejected")
		}
		verifier = auth.NewStaticVerifier(tokens)
	}

	console := service.NewConsole(service.Options{
		Client:       client,
		KV:           kv,
		Oracle:       permission.NewChecker(nil),
		Filter:       filter.New(filter.ParseQuery(cfg.Console.StartupQuery, nil), nil),
		SyncDebounce: cfg.Sync.Debounce,
	})

	// Create router
	router := api.NewRouter(console, verifier)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting console cache on http://%s", cfg.Server.Addr())
	log.Printf("Press Ctrl+C to stop")

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Push any sync requests still waiting for their debounce
	if err := console.InstanceSync.Flush(ctx); err != nil {
		log.Printf("Warning: pending instance sync failed: %v", err)
	}

	log.Println("Server stopped")
}
