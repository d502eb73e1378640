// Package config provides configuration loading for the cardvault service.
// It handles environment variable parsing and provides default values for
// all settings.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/cardvault/cardvault/hashalgo"
)

// init loads environment variables from .env files during package
// initialization. It loads .env and then .env.local whenever those files
// exist in the working directory, whatever the deployment environment.
// godotenv.Load does not override already-set environment variables,
// preserving OS env > .env > .env.local precedence.
func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Engine names the storage backend the demo binary wires up.
type Engine string

const (
	EngineMemory   Engine = "memory"
	EngineSQLite   Engine = "sqlite"
	EnginePostgres Engine = "postgres"
	EngineBadger   Engine = "badger"
	EngineS3       Engine = "s3"
)

// Config captures environment-driven settings for the cardvault service.
type Config struct {
	Env    string // Deployment environment (dev, staging, prod)
	Port   string // Demo binary's health/metrics port
	Engine Engine // Storage backend selection

	Region           string             // Default GTime region tag
	DefaultAlgorithm hashalgo.Algorithm // Default hash algorithm for new cards

	SQLitePath string // engine/sqlstore database file path
	DatabaseDSN string // engine/pgstore connection string (PostgreSQL)
	BadgerPath string // engine/badgerstore data directory

	S3Endpoint  string // engine/s3store endpoint
	S3Region    string // engine/s3store region
	S3Bucket    string // engine/s3store bucket name
	S3AccessKey string // engine/s3store access key
	S3SecretKey string // engine/s3store secret key

	NATSURL string // internal/notify JetStream URL, empty disables the notifier
}

// Default configuration values used when environment variables are not set.
const (
	defaultPort       = "8080"
	defaultS3Region   = "us-east-1"
	defaultEnv        = "dev"
	defaultRegion     = "UTC"
	defaultEngine     = EngineMemory
	defaultSQLitePath = "cardvault.db"
	defaultBadgerPath = "cardvault-badger"
)

// Load reads environment variables and produces a Config suitable for
// wiring the service, falling back to defaults where appropriate.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("CARDVAULT_ENV", defaultEnv),
		Port:             getEnv("CARDVAULT_PORT", defaultPort),
		Engine:           Engine(getEnv("CARDVAULT_ENGINE", string(defaultEngine))),
		Region:           getEnv("CARDVAULT_REGION", defaultRegion),
		DefaultAlgorithm: hashalgo.Algorithm(getEnv("CARDVAULT_DEFAULT_ALGORITHM", string(hashalgo.Default))),
		SQLitePath:       getEnv("CARDVAULT_SQLITE_PATH", defaultSQLitePath),
		DatabaseDSN:      getEnv("CARDVAULT_DB_DSN", ""),
		BadgerPath:       getEnv("CARDVAULT_BADGER_PATH", defaultBadgerPath),
		S3Endpoint:       getEnv("CARDVAULT_S3_ENDPOINT", ""),
		S3Region:         getEnv("CARDVAULT_S3_REGION", defaultS3Region),
		S3Bucket:         getEnv("CARDVAULT_S3_BUCKET", ""),
		S3AccessKey:      getEnv("CARDVAULT_S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("CARDVAULT_S3_SECRET_KEY", ""),
		NATSURL:          getEnv("CARDVAULT_NATS_URL", ""),
	}

	if !hashalgo.Valid(cfg.DefaultAlgorithm) {
		return cfg, fmt.Errorf("CARDVAULT_DEFAULT_ALGORITHM %q is not a known algorithm", cfg.DefaultAlgorithm)
	}

	switch cfg.Engine {
	case EngineMemory, EngineSQLite, EnginePostgres, EngineBadger, EngineS3:
	default:
		return cfg, fmt.Errorf("CARDVAULT_ENGINE %q is not one of memory|sqlite|postgres|badger|s3", cfg.Engine)
	}

	if cfg.Engine == EnginePostgres && cfg.DatabaseDSN == "" {
		return cfg, fmt.Errorf("CARDVAULT_DB_DSN is required when CARDVAULT_ENGINE=postgres")
	}

	if cfg.Engine == EngineS3 && cfg.S3Bucket == "" {
		return cfg, fmt.Errorf("CARDVAULT_S3_BUCKET is required when CARDVAULT_ENGINE=s3")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable value, returning a fallback if
// not set or empty.
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}
