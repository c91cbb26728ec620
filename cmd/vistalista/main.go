package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/andresucko/vistalista/internal/api"
	"github.com/andresucko/vistalista/internal/auth"
	"github.com/andresucko/vistalista/internal/config"
	"github.com/andresucko/vistalista/internal/list"
	"github.com/andresucko/vistalista/internal/repository/postgres"
	"github.com/andresucko/vistalista/internal/service"
	"github.com/andresucko/vistalista/internal/share"
	"github.com/andresucko/vistalista/internal/snapshot"
	"github.com/andresucko/vistalista/pkg/logger"
)

func main() {
	// A local .env is optional; in production everything comes from the
	// real environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting vistalista...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db.DB)
	sessionRepo := postgres.NewSessionRepository(db.DB)
	itemRepo := postgres.NewItemRepository(db.DB)
	savedListRepo := postgres.NewSavedListRepository(db.DB)
	shareRepo := postgres.NewShareGrantRepository(db.DB)

	// Core components
	provider := auth.NewPasswordProvider(userRepo, sessionRepo, cfg.SessionTTL, cfg.DefaultLanguage, l)
	lists := list.NewRegistry(itemRepo, l)
	snapshots := snapshot.NewStore(savedListRepo, l)
	shares := share.NewWorkflow(savedListRepo, shareRepo, cfg.BaseURL, l)

	svc := service.New(l, provider, lists, snapshots, shares, userRepo)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Session gate: drops per-user list state when sessions end
	gate := auth.NewGate(provider, lists, l)
	defer gate.Close()
	go gate.Run(ctx)

	// Expired-session sweeper
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := sessionRepo.DeleteExpired(ctx); err != nil {
					l.Errorf("Failed to sweep expired sessions: %v", err)
				} else if n > 0 {
					l.Infof("Removed %d expired sessions", n)
				}
			}
		}
	}()

	// HTTP API
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
			cancel()
		}
	}()

	l.Info("vistalista started successfully")

	<-ctx.Done()

	l.Info("Shutting down...")

	var shutdownErr *multierror.Error

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = multierror.Append(shutdownErr, err)
	}

	gate.Close()

	if err := db.Close(); err != nil {
		shutdownErr = multierror.Append(shutdownErr, err)
	}

	if err := shutdownErr.ErrorOrNil(); err != nil {
		l.Errorf("Shutdown finished with errors: %v", err)
		os.Exit(1)
	}

	l.Info("vistalista stopped")
}
