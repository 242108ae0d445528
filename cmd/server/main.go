/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the resourcing dashboard server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags (environment variables provide defaults)
  2. Configure logrus
  3. Initialize SQLite store
  4. Create the dashboard cache with Prometheus metrics
  5. Create API handler and router
  6. Start the cache warmer
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: $PORT or 8080)
  -db             SQLite database path (default: $DATABASE_URL or resourcing.db)
                  Use ":memory:" for in-memory database
  -cache-ttl      Dashboard cache TTL (default: 5m)
  -warm-interval  Cache warm-up interval, 0 disables (default: 4m)
  -log-level      logrus level (default: $LOG_LEVEL or info)
  -log-json       JSON log output
  -cors-origins   Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the cache warmer
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/resourcing.db"
  ./server -db=":memory:" -log-level=debug
  PORT=3000 ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/warp/resourcing-engine/api"
	"github.com/warp/resourcing-engine/cache"
	"github.com/warp/resourcing-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envString("DATABASE_URL", "resourcing.db"), "SQLite database path")
	cacheTTL := flag.Duration("cache-ttl", cache.DefaultTTL, "Dashboard cache TTL")
	warmInterval := flag.Duration("warm-interval", api.DefaultWarmInterval, "Cache warm-up interval (0 disables)")
	logLevel := flag.String("log-level", envString("LOG_LEVEL", "info"), "Log level")
	logJSON := flag.Bool("log-json", false, "Emit JSON logs")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins")
	flag.Parse()

	logger := logrus.New()
	if *logJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logger.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Cache
	dash := cache.NewDashboard(store,
		cache.WithTTL(*cacheTTL),
		cache.WithMetrics(cache.NewMetrics(registry)),
		cache.WithLogger(logger),
	)

	// Handler and router
	handler := api.NewHandler(store, dash, logger)
	var origins []string
	if *corsOrigins != "" {
		for _, o := range strings.Split(*corsOrigins, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: origins,
		Gatherer:       registry,
		RequestLogging: level >= logrus.DebugLevel,
	})

	// Warmer
	warmer := api.NewCacheWarmer(dash, logger)
	warmer.Interval = *warmInterval
	if err := warmer.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start cache warmer")
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"port":      *port,
			"db":        *dbPath,
			"cache_ttl": cacheTTL.String(),
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	warmer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

func envString(key, fallback string) string {
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
