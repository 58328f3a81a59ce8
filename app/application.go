package app

import (
	"fmt"
	"io"
	"log/slog"

	"atmolite.app/api"
	"atmolite.app/cache"
	"atmolite.app/config"
	"atmolite.app/pkg/logger"
	"atmolite.app/providers"
	"atmolite.app/quota"
	"atmolite.app/service"
	"atmolite.app/storage"
)

// Application represents the main application with all its dependencies
type Application struct {
	config *config.Config
	log    *logger.Logger
	store  storage.KeyValueStore
	remote cache.RemoteTier
	server *api.Server
}

// NewApplication creates and initializes a new application instance
func NewApplication() (*Application, error) {
	app := &Application{}

	if err := app.loadConfiguration(); err != nil {
		return nil, err
	}

	app.log = logger.NewFromEnv()
	app.initializeServices()

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

func (app *Application) initializeServices() {
	slog.Info("Initializing services...")

	// Local persistence degrades to a disabled store rather than failing
	// startup; every consumer tolerates StorageUnavailable.
	app.store = storage.New(app.config.Storage)

	consent := cache.NewConsentStore(app.store)
	ledger := quota.NewLedger(app.store)
	gate := quota.NewGate(app.config.Quota, ledger)

	local := cache.NewLocalTier(app.store, consent, app.config.Cache)
	app.remote = cache.NewRemoteTier(app.config.RemoteCache, app.config.Cache.Expiry)
	tiered := cache.NewTieredCache(local, app.remote)

	provider := providers.NewLoggingDecorator(providers.NewGeminiProvider(&app.config.Gemini))
	keys := cache.NewKeyDeriver(app.config.Cache)

	visualService := service.NewVisualService(provider, gate, tiered, keys, app.log)

	app.server = api.NewServer(app.config, visualService, gate, consent, app.store)

	slog.Info("Services initialized successfully",
		"storageDriver", app.config.Storage.Driver,
		"credentialPresent", app.config.Gemini.APIKey != "",
		"remoteCacheEnabled", app.config.RemoteCache.Enabled)
}

// Start starts the application
func (app *Application) Start() error {
	slog.Info("Starting HTTP server", "port", app.config.Server.Port)
	return app.server.Start()
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	slog.Info("Shutting down application...")

	if closer, ok := app.remote.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Error closing remote cache tier", "error", err)
		}
	}

	if closer, ok := app.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("Error closing local store", "error", err)
		}
	}

	slog.Info("Application shutdown complete")
	return nil
}

// Config returns the application configuration
func (app *Application) Config() *config.Config {
	return app.config
}
