/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave validation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config.yml + LEAVE_* env, then apply command-line flags
  2. Build the zap logger
  3. Open the SQLite store
  4. Load the leave-type table (file, stored table, or embedded default)
     and persist it
  5. Wire service, handler, router and balance refresher
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file (default: config.yml, skipped when missing)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the balance refresher
  2. Stop accepting new connections
  3. Wait for active requests (Server.ShutdownTimeout)
  4. Close database connection

SEE ALSO:
  - config/config.go: Configuration fields and env names
  - api/server.go: Router configuration
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
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	// Flags
	configFile := flag.String("config", "config.yml", "Config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	conf, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		conf.Server.Port = *port
	}
	if *dbPath != "" {
		conf.Database.Path = *dbPath
	}

	logger, err := conf.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(conf, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(conf *config.Configuration, logger *zap.Logger) error {
	store, err := sqlite.New(conf.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	catalog, err := loadCatalog(context.Background(), store, conf.Leave.TypesFile)
	if err != nil {
		return fmt.Errorf("load leave types: %w", err)
	}
	if err := store.SaveLeaveTypes(context.Background(), catalog.All()); err != nil {
		return fmt.Errorf("persist leave types: %w", err)
	}

	svc := leave.NewService(store, catalog, leave.Config{
		DefaultCountry:    conf.Leave.DefaultCountry,
		MaxBridgeDays:     conf.Leave.MaxBridgeDays,
		ApplyCarryForward: conf.Leave.ApplyCarryForward,
	}, logger)

	handler := api.NewHandler(svc, store, conf.Leave.DefaultCountry, logger)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: conf.Origins()})

	interval, err := conf.RefreshInterval()
	if err != nil {
		return err
	}
	refresher := api.NewBalanceRefresher(svc, interval, logger)
	refresher.Enabled = conf.SchedulerEnabled()
	refresher.Start()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", conf.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", conf.Server.Port),
			zap.String("db", conf.Database.Path),
			zap.Int("leave_types", len(catalog.All())),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-errCh:
		refresher.Stop()
		return err
	}

	refresher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// loadCatalog prefers an explicit file, then the table already stored in
// the database, then the embedded default.
func loadCatalog(ctx context.Context, store *sqlite.Store, file string) (*leave.Catalog, error) {
	f := factory.NewLeaveTypeFactory()
	if file != "" {
		return f.LoadCatalog(file)
	}
	stored, err := store.ListLeaveTypes(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return leave.NewCatalog(stored)
	}
	return f.LoadCatalog("")
}
