// Package config holds the application settings.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings contains the application config.
type Settings struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local" yaml:"environment"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"  yaml:"logLevel"`
	Port        int    `env:"PORT"        envDefault:"8080"  yaml:"port"`

	// Database settings. An empty URL runs the registry purely in
	// memory with no durable mirror.
	DatabaseURL    string `env:"DATABASE_URL"    yaml:"databaseUrl"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"file://migrations" yaml:"migrationsPath"`

	// Device network settings
	DeviceAPIURL    string        `env:"DEVICE_API_URL"    yaml:"deviceApiUrl"`
	DeviceAPIKey    string        `env:"DEVICE_API_KEY"    yaml:"deviceApiKey"`
	DeviceNetworkID string        `env:"DEVICE_NETWORK_ID" yaml:"deviceNetworkId"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT"  envDefault:"5s" yaml:"dispatchTimeout"`

	// Offline monitor settings
	OfflineAfter  time.Duration `env:"OFFLINE_AFTER"  envDefault:"10m" yaml:"offlineAfter"`
	OfflineSweep  time.Duration `env:"OFFLINE_SWEEP"  envDefault:"1m"  yaml:"offlineSweep"`
}

// LoadSettings parses the settings from the environment.
func LoadSettings() (Settings, error) {
	var settings Settings
	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return settings, nil
}
