/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the claims record service.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Configure the logger
  3. Initialize the store (SQLite, or in-memory)
  4. Create metrics, service and API handler
  5. Optionally seed a demo scenario
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port          HTTP server port (default: 8080)
  -db            SQLite database path (default: claims.db)
                 Use ":memory:" for an in-memory SQLite database and
                 ":memory-store:" for the map-backed store
  -log-level     logrus level: debug, info, warn, error (default: info)
  -seed          Scenario to load at startup (e.g. open-claims)
  -cors-origins  Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/claims.db"

  # Run in memory with demo data
  ./server -db=":memory:" -seed=open-claims

  # Verbose logging on a different port
  ./server -port=3000 -log-level=debug

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/warp/claims-engine/api"
	"github.com/warp/claims-engine/claims"
	"github.com/warp/claims-engine/claims/store"
	"github.com/warp/claims-engine/metrics"
	"github.com/warp/claims-engine/store/sqlite"
)

const memoryStore = ":memory-store:"

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "claims.db", "SQLite database path, or "+memoryStore)
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	seed := flag.String("seed", "", "Scenario to load at startup")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated CORS allowed origins")
	flag.Parse()

	logger := newLogger(*logLevel)

	// Initialize store
	txStore, closeStore, err := openStore(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize store")
	}
	defer closeStore()

	// Initialize service and handler
	m := metrics.New(prometheus.DefaultRegisterer)
	svc := claims.NewService(txStore, claims.WithLogger(logger), claims.WithMetrics(m))
	handler := api.NewHandler(svc, txStore, logger)

	if *seed != "" {
		if err := handler.LoadScenarioByID(context.Background(), *seed); err != nil {
			logger.WithError(err).WithField("scenario", *seed).Fatal("failed to seed")
		}
	}

	// Create router
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: splitOrigins(*corsOrigins),
		Gatherer:       prometheus.DefaultGatherer,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{"port": *port, "db": *dbPath}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
		return
	}

	logger.Info("server stopped")
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func openStore(dbPath string) (claims.TxStore, func(), error) {
	if dbPath == memoryStore {
		return store.NewTxMemory(), func() {}, nil
	}
	st, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
