// Package app bootstraps and runs the drone ops control plane.
package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skyward-ops/droneops/internal/adapters/correlation"
	"github.com/skyward-ops/droneops/internal/adapters/reporting"
	"github.com/skyward-ops/droneops/internal/adapters/storage"
	webserver "github.com/skyward-ops/droneops/internal/adapters/web/server"
	"github.com/skyward-ops/droneops/internal/config"
	"github.com/skyward-ops/droneops/internal/core/domain"
	"github.com/skyward-ops/droneops/internal/core/services/auth"
	"github.com/skyward-ops/droneops/internal/core/services/events"
	"github.com/skyward-ops/droneops/internal/core/services/ops"
	"github.com/skyward-ops/droneops/internal/core/services/policy"
	"github.com/skyward-ops/droneops/internal/geo"
	"github.com/skyward-ops/droneops/internal/telemetry"
)

// Application holds the core components of the control plane and acts as
// the facade orchestrating services and infrastructure.
type Application struct {
	Config      *config.Config
	Store       *storage.SQLiteAdapter
	Service     *ops.Service
	AuthService *auth.AuthService
	DeviceCache *correlation.DeviceCache
	WebServer   *webserver.Server
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	store, err := app.initStorage()
	if err != nil {
		return err
	}
	app.Store = store

	app.AuthService = auth.NewAuthService(store)
	if err := app.ensureDefaultAdmin(); err != nil {
		log.Printf("Warning: could not ensure default admin: %v", err)
	}

	app.DeviceCache = correlation.NewDeviceCache()

	bus := events.NewBus()
	engine := policy.NewEngine()
	app.Service = ops.NewService(
		store,
		bus,
		engine,
		app.DeviceCache,
		correlation.NewTemporalCorrelator(),
		geo.NewEstimator(),
	)

	app.WebServer = webserver.NewServer(app.Config.Addr, app.Service, app.AuthService, reporting.NewPDFExporter(), app.Config.KeepaliveSeconds)
	return nil
}

func (app *Application) initStorage() (*storage.SQLiteAdapter, error) {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	return store, nil
}

func (app *Application) ensureDefaultAdmin() error {
	existing, err := app.Store.GetByUsername(context.Background(), app.Config.AdminUser)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	log.Println("Provisioning default admin user...")
	return app.AuthService.CreateUser(context.Background(), domain.User{
		Username: app.Config.AdminUser,
		Role:     domain.RoleAdmin,
	}, app.Config.AdminPassword)
}

// Run starts the application components and blocks until ctx is cancelled
// or a server fails.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("Starting drone ops components...")

	errChan := make(chan error, 1)
	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()

	slog.Info("Drone ops ready. Press Ctrl+C to terminate.")

	select {
	case <-ctx.Done():
		slog.Info("Termination signal received")
	case err := <-errChan:
		return err
	}

	return app.cleanup()
}

func (app *Application) cleanup() error {
	slog.Info("Cleaning up resources...")
	if app.Store != nil {
		return app.Store.Close()
	}
	return nil
}
