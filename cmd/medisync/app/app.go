// Package app provides the application context and dependency management for
// the medisync CLI. It centralizes configuration, logging and the syncer
// facade behind a single App value that commands pull their dependencies
// from.
package app

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/farmaciaslf/medisync"
	"github.com/farmaciaslf/medisync/internal/sources/mediven"
	"github.com/farmaciaslf/medisync/internal/sources/shopify"
	"github.com/farmaciaslf/medisync/pkg/exclusion"
)

// App represents the medisync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Syncer facade (lazy-initialized, singleton)
	mu     sync.RWMutex
	syncer medisync.Syncer
}

// New creates a new App instance with the given version information.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Syncer returns the syncer facade, creating it lazily if needed. This is
// thread-safe and ensures only one instance is created.
func (a *App) Syncer() (medisync.Syncer, error) {
	a.mu.RLock()
	if a.syncer != nil {
		s := a.syncer
		a.mu.RUnlock()
		return s, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.syncer != nil {
		return a.syncer, nil
	}

	opts, err := a.buildSyncerOptions()
	if err != nil {
		return nil, err
	}
	s, err := medisync.New(opts...)
	if err != nil {
		return nil, err
	}

	a.syncer = s
	return s, nil
}

// buildSyncerOptions constructs syncer options from the app configuration.
func (a *App) buildSyncerOptions() ([]medisync.Option, error) {
	if err := a.config.Validate(); err != nil {
		return nil, err
	}

	supplier := mediven.New(mediven.Config{
		LoginURL:     a.config.LoginURL,
		InventoryURL: a.config.InventoryURL,
		User:         a.config.MedivenUser,
		Password:     a.config.MedivenPassword,
	})

	store := shopify.New(shopify.Config{
		Domain:          a.config.ShopDomain,
		Token:           a.config.ShopifyToken,
		APIVersion:      a.config.APIVersion,
		LocationID:      a.config.LocationID,
		PublicationID:   a.config.PublicationID,
		DefaultImageURL: a.config.DefaultImageURL,
	})

	opts := []medisync.Option{
		medisync.WithSource(supplier),
		medisync.WithCatalog(store),
		medisync.WithStatePath(a.config.StatePath),
		medisync.WithLockPath(a.config.LockPath),
		medisync.WithFeedSnapshot(a.config.SnapshotPath),
		medisync.WithSimulate(a.config.Simulate),
		medisync.WithDeleteMissing(a.config.DeleteMissing),
	}

	if a.config.ExclusionFile != "" {
		filter, err := exclusion.Load(a.config.ExclusionFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, medisync.WithFilter(filter))
	}

	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithSyncer sets a custom syncer instance (useful for testing).
func WithSyncer(s medisync.Syncer) Option {
	return func(a *App) error {
		a.syncer = s
		return nil
	}
}
