package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable Load reads, e.g.
// QUERYKIT_DATABASE_URL or QUERYKIT_LOG_LEVEL.
const EnvPrefix = "QUERYKIT"

// Load configuration from defaults, an optional YAML file and environment
// variables. Environment variables take precedence over values from config
// files. When configFile is empty, ./querykit.yaml is read if it exists.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DATABASE_URL is honoured as well, as the integration tests set it.
	if err := v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind database url: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("querykit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "sqlite://querykit.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.jwt_secret", "")
}

// Validate checks the configuration against its struct tags. Callers that
// override fields after Load (e.g. from CLI flags) validate again.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("dburl", validateDatabaseURL); err != nil {
		return fmt.Errorf("failed to register validation: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// supportedSchemes are the database URL prefixes internal/platform/database
// knows how to open.
var supportedSchemes = []string{"postgres://", "postgresql://", "sqlite://", "sqlite:"}

func validateDatabaseURL(fl validator.FieldLevel) bool {
	url := fl.Field().String()
	for _, scheme := range supportedSchemes {
		if strings.HasPrefix(url, scheme) {
			return len(url) > len(scheme)
		}
	}
	return false
}
