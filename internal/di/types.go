package di

import (
	"github.com/aristath/markowitz/internal/clientdata"
	"github.com/aristath/markowitz/internal/database"
	"github.com/aristath/markowitz/internal/marketdata"
	"github.com/aristath/markowitz/internal/modules/portfolio"
	"github.com/aristath/markowitz/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	CacheDB *database.DB // Cached price series; nil when caching is disabled

	// Repositories
	ClientDataRepo *clientdata.Repository

	// Market data
	Upstream marketdata.Provider        // Yahoo or CSV source
	Cached   *marketdata.CachedProvider // nil when caching is disabled
	Prices   portfolio.PriceProvider    // What the pipeline fetches through

	// Services
	PortfolioService *portfolio.Service

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds the registered maintenance jobs
type JobInstances struct {
	ClientDataCleanup scheduler.Job
	CheckWAL          scheduler.Job
	CheckDatabases    scheduler.Job
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c.CacheDB != nil {
		return c.CacheDB.Close()
	}
	return nil
}
