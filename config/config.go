package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Solver    SolverConfig
	RateLimit RateLimitConfig
	Session   SessionConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SolverConfig holds solve-engine tunables
type SolverConfig struct {
	// Epsilon below which magnitudes are treated as exactly zero
	Epsilon float64 `mapstructure:"epsilon"`
	// SimplexTolerance is the pivot tolerance passed to the LP backend;
	// zero selects the library default
	SimplexTolerance float64 `mapstructure:"simplex_tolerance"`
	// MaxIngredients caps request size; zero disables the cap
	MaxIngredients int `mapstructure:"max_ingredients"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
	Burst int `mapstructure:"burst"`
}

// SessionConfig holds supersede-tracking configuration
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/plateplan/")

	// Environment variable settings
	v.SetEnvPrefix("PLATEPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Solver defaults
	v.SetDefault("solver.epsilon", 1e-9)
	v.SetDefault("solver.simplex_tolerance", 0.0)
	v.SetDefault("solver.max_ingredients", 50)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 10)
	v.SetDefault("ratelimit.burst", 20)

	// Session defaults
	v.SetDefault("session.ttl", "1h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Solver.Epsilon <= 0 {
		return fmt.Errorf("solver epsilon must be positive, got: %v", config.Solver.Epsilon)
	}

	if config.Solver.SimplexTolerance < 0 {
		return fmt.Errorf("solver simplex tolerance must not be negative, got: %v", config.Solver.SimplexTolerance)
	}

	if config.Solver.MaxIngredients < 0 {
		return fmt.Errorf("solver max ingredients must not be negative, got: %d", config.Solver.MaxIngredients)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
