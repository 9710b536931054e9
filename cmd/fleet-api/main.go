package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	// import docs for swagger generation.
	_ "github.com/voltride/fleet-api/docs"
	"github.com/voltride/fleet-api/internal/app"
	"github.com/voltride/fleet-api/internal/client/devicenet"
	"github.com/voltride/fleet-api/internal/client/tokencache"
	"github.com/voltride/fleet-api/internal/config"
	"github.com/voltride/fleet-api/internal/fleet"
	"github.com/voltride/fleet-api/internal/store"
)

// @title Fleet API
// @version 1.0
// @description Scooter fleet backend: telemetry ingestion, rental lifecycle and device commands
const appName = "fleet-api"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", appName).Logger()

	settings, err := config.LoadSettings()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load settings.")
	}
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse log level.")
	}
	zerolog.SetGlobalLevel(level)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Received signal, shutting down...")
	}()

	var mirror fleet.Mirror
	var vehicleStore *store.Store
	if settings.DatabaseURL != "" {
		if err := applyMigrations(&settings, &logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations.")
		}
		vehicleStore, err = store.Open(ctx, settings.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open vehicle store.")
		}
		defer vehicleStore.Close() //nolint:errcheck
		mirror = vehicleStore
	}

	registry := fleet.NewRegistry(logger, mirror)
	if vehicleStore != nil {
		vehicles, err := vehicleStore.ListVehicles(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to warm up registry from store.")
		}
		registry.Load(vehicles)
		logger.Info().Int("vehicles", len(vehicles)).Msg("Registry warmed up from store")
	}

	httpClient := &http.Client{Timeout: time.Minute}
	sessionGetter, err := devicenet.NewSessionGetter(&settings, httpClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create device network session getter.")
	}
	tokenCache := tokencache.New(time.Hour, 24*time.Hour, sessionGetter)
	dispatcher, err := devicenet.NewClient(&settings, tokenCache, httpClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create device network client.")
	}

	rentals := fleet.NewRentalService(registry, dispatcher, settings.DispatchTimeout, logger)
	monitor := fleet.NewMonitor(registry, settings.OfflineAfter, settings.OfflineSweep, logger)

	ctrl, err := app.NewController(registry, rentals, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create controller.")
	}
	webApp := app.New(&logger, ctrl)

	group, gCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return registry.RunMirror(gCtx)
	})
	group.Go(func() error {
		return monitor.Run(gCtx)
	})
	runFiber(gCtx, webApp, settings.Port, group)

	logger.Info().Int("port", settings.Port).Msg("Starting fleet API")
	if err := group.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run servers.")
	}
}

// runFiber runs the fiber server until the context is canceled.
func runFiber(ctx context.Context, fiberApp *fiber.App, port int, group *errgroup.Group) {
	group.Go(func() error {
		if err := fiberApp.Listen(fmt.Sprintf(":%d", port)); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		if err := fiberApp.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})
}

// applyMigrations runs the versioned schema migrations before the
// service starts serving.
func applyMigrations(settings *config.Settings, logger *zerolog.Logger) error {
	m, err := migrate.New(settings.MigrationsPath, settings.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close() //nolint:errcheck

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info().Msg("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info().Msg("Migrations applied")
	return nil
}
