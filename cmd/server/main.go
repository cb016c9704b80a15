package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fastlane/backend/config"
	httpDelivery "github.com/fastlane/backend/internal/delivery/http"
	"github.com/fastlane/backend/internal/domain"
	"github.com/fastlane/backend/internal/infrastructure/cache"
	"github.com/fastlane/backend/internal/infrastructure/fastlane"
	"github.com/fastlane/backend/internal/infrastructure/postgres"
	"github.com/fastlane/backend/internal/infrastructure/requestlog"
	"github.com/fastlane/backend/internal/usecase"
)

// requestRetention bounds how long in-memory request entries are kept
const requestRetention = 48 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Fast Lane Price Service v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize infrastructure dependencies
	priceCache, requests, closeStores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeStores()
	log.Printf("Cache validity: %s, purge after: %s", cfg.Cache.ValidityWindow, cfg.Cache.PurgeAfter)

	source := fastlane.NewClient(fastlane.ClientConfig{
		URL:        cfg.Source.URL,
		Timeout:    cfg.Source.Timeout,
		UserAgent:  cfg.Source.UserAgent,
		RetryCount: cfg.Source.RetryCount,
	})
	defer source.Close()
	log.Printf("Price source: %s (timeout %s, retries %d)", cfg.Source.URL, cfg.Source.Timeout, cfg.Source.RetryCount)

	// Initialize usecase layer
	priceService := usecase.NewPriceService(
		priceCache,
		source,
		usecase.PriceServiceConfig{
			ValidityWindow: cfg.Cache.ValidityWindow,
			SingleFlight:   cfg.Cache.SingleFlight,
		},
	)
	statsService := usecase.NewStatsService(requests, priceCache, cfg.Cache.ValidityWindow, nil)

	log.Printf("Single-flight fetches: %v, rate limit: %d/min per IP", cfg.Cache.SingleFlight, cfg.RateLimit.PerIP)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(priceService, statsService)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	log.Printf("Server exited")
}

// openStores builds the cache and request log for the configured backend.
// The returned func releases whatever was opened.
func openStores(ctx context.Context, cfg *config.Config) (domain.PriceCache, domain.RequestLogRepository, func(), error) {
	switch cfg.Cache.Type {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Cache.DatabaseURL, postgres.Options{})
		if err != nil {
			return nil, nil, nil, err
		}
		log.Printf("Connected to PostgreSQL, schema ready")
		return cache.NewPostgresPriceCache(db, cfg.Cache.PurgeAfter),
			requestlog.NewPostgresRepository(db),
			closeDB(db),
			nil
	default:
		memoryCache := cache.NewMemoryPriceCache(cfg.Cache.PurgeAfter)
		return memoryCache,
			requestlog.NewMemoryRepository(requestRetention),
			func() { memoryCache.Close() },
			nil
	}
}

func closeDB(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
