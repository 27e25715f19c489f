// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers.
const (
	DriverSQLite      = "sqlite"
	DriverMemory      = "memory"
	DriverDynamoDB    = "dynamodb"
	DriverAzureTables = "azuretables"
)

// Config holds the server settings.
type Config struct {
	Port       int
	StaticPath string
	BaseURL    string

	StoreDriver    string
	DBPath         string
	AppendAttempts int

	RedisURL string
	CacheTTL time.Duration

	DynamoTable    string
	AWSRegion      string
	DynamoEndpoint string

	AzureConnectionString string
	AzureTable            string
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Load reads the configuration. Malformed values are errors rather than
// silently replaced by defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StaticPath:            getEnv("STATIC_PATH", "./static"),
		StoreDriver:           getEnv("STORE_DRIVER", DriverSQLite),
		DBPath:                getEnv("DB_PATH", "./data/groups.db"),
		RedisURL:              getEnv("REDIS_URL", ""),
		DynamoTable:           getEnv("DYNAMODB_TABLE", "groups"),
		AWSRegion:             getEnv("AWS_REGION", "eu-central-1"),
		DynamoEndpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
		AzureConnectionString: getEnv("AZURE_TABLES_CONNECTION_STRING", ""),
		AzureTable:            getEnv("AZURE_TABLE", "groups"),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnv("PORT", "8080")); err != nil || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", os.Getenv("PORT"))
	}
	if cfg.AppendAttempts, err = strconv.Atoi(getEnv("APPEND_MAX_ATTEMPTS", "5")); err != nil || cfg.AppendAttempts < 1 {
		return nil, fmt.Errorf("invalid APPEND_MAX_ATTEMPTS %q", os.Getenv("APPEND_MAX_ATTEMPTS"))
	}
	if cfg.CacheTTL, err = time.ParseDuration(getEnv("CACHE_TTL", "30s")); err != nil || cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("invalid CACHE_TTL %q", os.Getenv("CACHE_TTL"))
	}
	cfg.BaseURL = getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))

	switch cfg.StoreDriver {
	case DriverSQLite, DriverMemory, DriverDynamoDB:
	case DriverAzureTables:
		if cfg.AzureConnectionString == "" {
			return nil, fmt.Errorf("AZURE_TABLES_CONNECTION_STRING is required for the %s driver", DriverAzureTables)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}
