/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the finance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, configure logging
  2. Initialize SQLite store, migrate legacy payment ids
  3. Create API handler, apply the optional config document
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: finance.db)
           Use ":memory:" for in-memory database
  -config  JSON configuration file (rates, sharing modes, cards, tags)

ENVIRONMENT:
  LOG_LEVEL  debug, info, warn, error (default: info)
  NO_COLOR   disable colored logs

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection

EXAMPLES:
  ./server -db="./data/finance.db" -config=./finance.json
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - factory/config.go: Configuration document
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/finance-engine/api"
	"github.com/warp/finance-engine/logging"
	"github.com/warp/finance-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "finance.db", "SQLite database path")
	configPath := flag.String("config", "", "JSON configuration file")
	flag.Parse()

	logging.Setup()

	if err := run(*port, *dbPath, *configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(port int, dbPath, configPath string) error {
	ctx := context.Background()

	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	res, err := store.MigrateLegacyPayments(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate legacy payments: %w", err)
	}
	if res.Migrated > 0 || res.Superseded > 0 || len(res.Unparsed) > 0 {
		slog.Info("legacy payments migrated",
			"migrated", res.Migrated, "superseded", res.Superseded, "unparsed", res.Unparsed)
	}

	handler := api.NewHandler(store)
	if configPath != "" {
		doc, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		cfg, err := handler.ConfigFactory.ParseConfig(string(doc))
		if err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		if err := handler.Configure(ctx, cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
		slog.Info("configuration applied", "path", configPath,
			"sharing_modes", len(cfg.SharingModes), "cards", len(cfg.Cards), "tags", len(cfg.Tags))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", port), "db", dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		return err
	case <-quit:
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
