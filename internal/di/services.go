package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/clientdata"
	"github.com/aristath/markowitz/internal/clients/yahoo"
	"github.com/aristath/markowitz/internal/config"
	"github.com/aristath/markowitz/internal/marketdata"
	"github.com/aristath/markowitz/internal/modules/portfolio"
)

// NewUpstreamProvider builds the configured price source
func NewUpstreamProvider(cfg *config.Config, log zerolog.Logger) (marketdata.Provider, error) {
	switch cfg.MarketData.Source {
	case config.SourceYahoo:
		return yahoo.NewClient(cfg.MarketData.YahooRPS, log), nil
	case config.SourceCSV:
		return marketdata.NewCSVProvider(cfg.MarketData.CSVDir, log), nil
	default:
		return nil, fmt.Errorf("unknown market data source %q", cfg.MarketData.Source)
	}
}

// InitializeServices builds the provider chain and the portfolio service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	upstream, err := NewUpstreamProvider(cfg, log)
	if err != nil {
		return err
	}
	container.Upstream = upstream
	container.Prices = upstream

	if container.CacheDB != nil {
		container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())
		container.Cached = marketdata.NewCachedProvider(upstream, container.ClientDataRepo, cfg.MarketData.CacheTTL, log)
		container.Prices = container.Cached
	}

	container.PortfolioService = portfolio.NewService(
		container.Prices,
		marketdata.Align,
		cfg.ServiceConfig(),
		log,
	)

	log.Info().
		Str("source", cfg.MarketData.Source).
		Bool("cache", container.Cached != nil).
		Msg("Services initialized")

	return nil
}
