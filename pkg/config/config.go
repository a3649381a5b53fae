// Package config loads and validates the remittance ledger's deployment
// configuration: HTTP server, snapshot database, logging and monitoring
// sections, plus the remittance-specific environment, signing key, and
// JWT sections.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the application's full configuration tree.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Remittance RemittanceConfig `yaml:"remittance"`
	JWT        JWTConfig        `yaml:"jwt"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig contains the snapshot store's Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     int    `yaml:"port" default:"5432" validate:"gt=0"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"remittance_ledger" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// LoggingConfig contains zap logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// MonitoringConfig contains Prometheus metrics settings.
type MonitoringConfig struct {
	Enabled     bool `yaml:"enabled" default:"true"`
	MetricsPort int  `yaml:"metrics_port" default:"9090" validate:"gt=0"`
}

// Environment selects the signing key id and per-sign budget the oracle
// operates under.
type Environment string

const (
	EnvironmentDevelopment Environment = "development"
	EnvironmentStaging     Environment = "staging"
	EnvironmentProduction  Environment = "production"
)

// signBudgetUnits is the per-sign compute budget attributed to each
// environment's key id, used purely for operational accounting.
var signBudgetUnits = map[Environment]uint64{
	EnvironmentDevelopment: 25_000_000_000,
	EnvironmentStaging:     10_000_000_000,
	EnvironmentProduction:  26_150_000_000,
}

// RemittanceConfig selects the deployment environment, the oracle key id
// and derivation path it signs under, and the server seed the LocalOracle
// derives every signing key from.
type RemittanceConfig struct {
	Environment    Environment `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	DerivationPath []string    `yaml:"derivation_path" default:"[\"m\"]"`
	SeedEnv        string      `yaml:"seed_env" default:"REMITTANCE_ORACLE_SEED" validate:"required"`
}

// KeyID maps the configured Environment to the oracle key id it signs
// under.
func (r RemittanceConfig) KeyID() string {
	switch r.Environment {
	case EnvironmentStaging:
		return "test-shared"
	case EnvironmentProduction:
		return "production"
	default:
		return "test-local"
	}
}

// SignBudgetUnits returns the per-sign budget attributed to r.Environment.
func (r RemittanceConfig) SignBudgetUnits() uint64 {
	return signBudgetUnits[r.Environment]
}

// JWTConfig selects how bearer tokens presented by data-collector
// principals are authenticated: either a shared HMAC secret (suitable for
// a closed set of known publishers) or a JWKS endpoint (for externally
// issued tokens).
type JWTConfig struct {
	Issuer string `yaml:"issuer" validate:"required"`
	// HMACKeyEnv names the environment variable holding the shared HMAC
	// secret; the secret itself never appears in the config file.
	HMACKeyEnv string `yaml:"hmac_key_env"`
	JWKSURL    string `yaml:"jwks_url"`
	Audience   string `yaml:"audience"`
}

// UsesHMAC reports whether this deployment authenticates bearer tokens
// with a shared HMAC secret rather than JWKS.
func (j JWTConfig) UsesHMAC() bool {
	return j.HMACKeyEnv != ""
}

// Load reads, defaults, and validates configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	overrideEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func overrideEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("DATABASE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("DATABASE_SSL_MODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REMITTANCE_ENVIRONMENT"); v != "" {
		cfg.Remittance.Environment = Environment(v)
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWT.Issuer = v
	}
}

var structValidator = validator.New()

// Validate runs go-playground/validator struct-tag validation over cfg.
func Validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	return nil
}

// GetConnectionString returns a PostgreSQL connection string for the
// snapshot store.
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
