/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env file (if present) and parse flags
  2. Configure structured logging
  3. Initialize SQLite store (seeds deal types on first run)
  4. Load tier table (file override or built-in defaults)
  5. Create calculator, API handler, and HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence over environment variables.

  -port / PORT            HTTP server port (default: 8080)
  -db / DB_PATH           SQLite database path (default: commissions.db)
                          Use ":memory:" for in-memory database
  -tiers / TIERS_FILE     Optional JSON tier table override
  -log-level / LOG_LEVEL  logrus level (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/commissions.db"

  # Run with custom tier rates
  ./server -tiers="./config/tiers.json"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
  - factory/tiers.go: Tier table loading
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/salesdash/commission-engine/api"
	"github.com/salesdash/commission-engine/commission"
	"github.com/salesdash/commission-engine/factory"
	"github.com/salesdash/commission-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	// Flags (env vars supply the defaults)
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "commissions.db"), "SQLite database path")
	tiersFile := flag.String("tiers", envStr("TIERS_FILE", ""), "JSON tier table override (optional)")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	flag.Parse()

	// Logging
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", *logLevel).Warn("unknown log level, using info")
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	// Tier table: file override or built-in defaults
	tiers := commission.DefaultTierTable()
	if *tiersFile != "" {
		tiers, err = factory.LoadTierTable(*tiersFile)
		if err != nil {
			log.WithError(err).WithField("path", *tiersFile).Fatal("failed to load tier table")
		}
		log.WithField("path", *tiersFile).Info("loaded tier table override")
	}

	// Wire up the engine and handlers
	calc := commission.NewCalculator(store, tiers, log)
	handler := api.NewHandler(store, calc, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("commission engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
