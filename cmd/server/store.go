package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/grouporder/internal/config"
	"github.com/mmynk/grouporder/internal/storage"
	"github.com/mmynk/grouporder/internal/storage/azuretables"
	"github.com/mmynk/grouporder/internal/storage/dynamo"
	"github.com/mmynk/grouporder/internal/storage/memory"
	"github.com/mmynk/grouporder/internal/storage/sqlite"
)

// openBackend creates the configured backend, behind the Redis cache when
// REDIS_URL is set.
func openBackend(cfg *config.Config) (storage.Backend, error) {
	var (
		backend storage.Backend
		err     error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		backend = memory.New()
	case config.DriverSQLite:
		backend, err = sqlite.New(cfg.DBPath)
	case config.DriverDynamoDB:
		backend, err = dynamo.New(dynamo.Config{
			Table:    cfg.DynamoTable,
			Region:   cfg.AWSRegion,
			Endpoint: cfg.DynamoEndpoint,
		})
	case config.DriverAzureTables:
		backend, err = azuretables.New(cfg.AzureConnectionString, cfg.AzureTable)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		return backend, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return storage.NewCache(backend, redis.NewClient(opts), cfg.CacheTTL), nil
}
