package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/dialect"
)

const (
	// SourcePrefix prefixes the environment variables of the scanned database
	SourcePrefix = "EXTRACTOR"
	// TargetPrefix prefixes the environment variables of the copy target
	TargetPrefix = "TARGET"
)

// ConnectionConfig holds the parameters of one database connection
type ConnectionConfig struct {
	Driver   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	SSLMode  string
	// Catalog is the database (MySQL) or schema (PostgreSQL) to scan
	Catalog string
}

// FromEnv fills every empty field of overrides from <prefix>_* environment
// variables, then from driver defaults.
func FromEnv(prefix string, overrides ConnectionConfig) ConnectionConfig {
	cfg := overrides

	if cfg.Driver == "" {
		cfg.Driver = getEnvOrDefault(prefix+"_DRIVER", "mysql")
	}
	if cfg.Host == "" {
		cfg.Host = getEnvOrDefault(prefix+"_HOST", "localhost")
	}
	if cfg.User == "" {
		cfg.User = getEnvOrDefault(prefix+"_USER", "root")
	}
	if cfg.Password == "" {
		cfg.Password = getEnvOrDefault(prefix+"_PASSWORD", "")
	}
	if cfg.Database == "" {
		cfg.Database = getEnvOrDefault(prefix+"_DATABASE", "")
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = getEnvOrDefault(prefix+"_SSLMODE", "")
	}
	if cfg.Catalog == "" {
		cfg.Catalog = getEnvOrDefault(prefix+"_CATALOG", "")
	}

	d, err := dialect.ForName(cfg.Driver)
	if cfg.Port == "" {
		cfg.Port = os.Getenv(prefix + "_PORT")
		if cfg.Port == "" && err == nil {
			cfg.Port = d.DefaultPort()
		}
	}
	if cfg.Catalog == "" && err == nil {
		cfg.Catalog = d.DefaultCatalog(cfg.Database)
	}

	return cfg
}

// Dialect resolves the configured driver
func (c ConnectionConfig) Dialect() (dialect.Dialect, error) {
	return dialect.ForName(c.Driver)
}

// Endpoint returns the parameters the dialect needs to build a DSN
func (c ConnectionConfig) Endpoint() dialect.Endpoint {
	return dialect.Endpoint{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		SSLMode:  c.SSLMode,
	}
}

// Validate validates database connection parameters
func (c ConnectionConfig) Validate(logger logrus.FieldLogger) bool {
	if _, err := c.Dialect(); err != nil {
		logger.Errorf("Invalid driver: %v", err)
		return false
	}

	if c.Host == "" {
		logger.Error("Database host is required")
		return false
	}

	if c.User == "" {
		logger.Error("Database user is required")
		return false
	}

	if c.Password == "" { // Empty password is allowed
		logger.Warning("Database password is empty")
	}

	if c.Database == "" {
		logger.Error("Database name is required")
		return false
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		logger.Errorf("Invalid port number: %s", c.Port)
		return false
	}

	return true
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}
