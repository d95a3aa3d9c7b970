// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/config"
	"github.com/aristath/markowitz/internal/database"
)

// InitializeDatabases opens the price cache database and applies its schema.
// Nothing is opened when caching is disabled.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	if !cfg.MarketData.CacheEnabled {
		log.Info().Msg("Price cache disabled")
		return container, nil
	}

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache database: %w", err)
	}

	if err := cacheDB.Migrate(); err != nil {
		cacheDB.Close()
		return nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	container.CacheDB = cacheDB

	log.Info().Str("path", cacheDB.Path()).Msg("Cache database initialized")
	return container, nil
}
