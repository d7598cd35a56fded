package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nftcache.app/api"
	"nftcache.app/config"
	"nftcache.app/errors"
	"nftcache.app/listing"
	"nftcache.app/metadata"
	"nftcache.app/metrics"
	"nftcache.app/models"
	"nftcache.app/scanner"
	"nftcache.app/storage"
)

// Application represents the main application with all its dependencies.
// Every service is an explicitly constructed object owned here; there is no
// package-level shared state.
type Application struct {
	config   *config.Config
	store    storage.Store
	resolver *metadata.Resolver
	listings *listing.Manager
	scanner  *scanner.Scanner
	server   *api.Server
}

// NewApplication creates and initializes a new application instance. The
// event source is the out-of-process chain-scan collaborator; passing nil
// disables the scan loop.
func NewApplication(eventSource scanner.EventSource) (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	if err := app.initializeServices(eventSource); err != nil {
		return nil, err
	}

	return app, nil
}

func (app *Application) loadConfiguration() error {
	slog.Info("Loading configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("load application configuration: %w", err)
	}

	app.config = cfg
	slog.Info("Configuration loaded successfully")
	return nil
}

func (app *Application) initializeStore() error {
	slog.Info("Initializing store...", "type", app.config.Store.Type)

	store, err := storage.NewStore(&app.config.Store)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		return fmt.Errorf("initialize store: %w", err)
	}

	app.store = store
	slog.Info("Store initialized successfully")
	return nil
}

func (app *Application) initializeServices(eventSource scanner.EventSource) error {
	slog.Info("Initializing services...")

	metadataCache := metadata.NewCache(
		context.Background(),
		app.store,
		time.Duration(app.config.Metadata.CacheTTLMinutes)*time.Minute,
	)
	fetcher := metadata.NewHTTPFetcher(&app.config.Metadata)
	app.resolver = metadata.NewResolver(
		fetcher,
		metadataCache,
		metrics.NewCacheMetrics("metadata"),
		time.Duration(app.config.Metadata.BatchWindowMs)*time.Millisecond,
	)

	app.listings = listing.NewManager(
		app.store,
		time.Duration(app.config.Scanner.SnapshotTTLMinutes)*time.Minute,
		metrics.NewCacheMetrics("listing"),
	)

	if eventSource != nil && app.config.Scanner.Enabled {
		startBlock, err := models.ParseBigInt(app.config.Scanner.StartBlock)
		if err != nil {
			return errors.NewConfigurationError("invalid scanner start block", err)
		}
		app.scanner = scanner.NewScanner(
			eventSource,
			app.listings,
			time.Duration(app.config.Scanner.IntervalSeconds)*time.Second,
			startBlock,
		)
	}

	app.server = api.NewServer(app.config, app.resolver, app.listings)

	slog.Info("Services initialized successfully")
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	slog.Info("Starting application...")

	if app.scanner != nil {
		slog.Info("Starting listing scanner...")
		go app.scanner.Start()
	}

	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if app.scanner != nil {
		app.scanner.Stop()
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			slog.Warn("Error closing store", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
