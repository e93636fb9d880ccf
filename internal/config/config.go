package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Log      LogConfig      `mapstructure:"log"      validate:"required"`
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// URL selects the store: postgres://... or postgresql://... for
	// PostgreSQL, sqlite://<path> or sqlite::memory: for SQLite.
	URL             string        `mapstructure:"url"               validate:"required,dburl"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"   validate:"gt=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// LogConfig controls the process-wide slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text human"`
}

// ServerConfig contains all HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	// JWTSecret enables bearer authentication on /api when set.
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}
