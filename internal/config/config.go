// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aristath/markowitz/internal/modules/portfolio"
	"github.com/aristath/markowitz/pkg/formulas"
)

// Market data sources
const (
	SourceYahoo = "yahoo"
	SourceCSV   = "csv"
)

// Config holds application configuration
type Config struct {
	DataDir    string // Base directory for the cache database (always absolute)
	LogLevel   string
	Port       int
	DevMode    bool
	MarketData MarketDataConfig
	Portfolio  PortfolioConfig
	Optimizer  portfolio.SolverSettings
}

// MarketDataConfig selects and tunes the price source
type MarketDataConfig struct {
	Source       string // "yahoo" or "csv"
	CSVDir       string
	CacheEnabled bool
	CacheTTL     time.Duration
	YahooRPS     float64 // Upper bound on Yahoo history requests per second
}

// PortfolioConfig holds the statistics and sampling parameters
type PortfolioConfig struct {
	TradingDaysPerYear int
	WeightTolerance    float64
	RandomPortfolios   int
	SamplerWorkers     int
}

// CacheDBPath is the sqlite file holding cached price series.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// ServiceConfig maps the configuration onto the portfolio service parameters.
func (c *Config) ServiceConfig() portfolio.ServiceConfig {
	return portfolio.ServiceConfig{
		PeriodsPerYear:   c.Portfolio.TradingDaysPerYear,
		WeightTolerance:  c.Portfolio.WeightTolerance,
		RandomPortfolios: c.Portfolio.RandomPortfolios,
		Workers:          c.Portfolio.SamplerWorkers,
		Solver:           c.Optimizer,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("MARKOWITZ_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	defaults := portfolio.DefaultSolverSettings()

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		MarketData: MarketDataConfig{
			Source:       getEnv("MARKET_DATA_SOURCE", SourceYahoo),
			CSVDir:       getEnv("CSV_DATA_DIR", filepath.Join(absDataDir, "prices")),
			CacheEnabled: getEnvAsBool("PRICE_CACHE_ENABLED", true),
			CacheTTL:     time.Duration(getEnvAsInt("PRICE_CACHE_TTL_HOURS", 24)) * time.Hour,
		},
		Portfolio: PortfolioConfig{
			TradingDaysPerYear: getEnvAsInt("TRADING_DAYS_PER_YEAR", formulas.TradingDaysPerYear),
			WeightTolerance:    getEnvAsFloat("WEIGHT_TOLERANCE", portfolio.DefaultWeightTolerance),
			RandomPortfolios:   getEnvAsInt("RANDOM_PORTFOLIOS", 10000),
			SamplerWorkers:     getEnvAsInt("SAMPLER_WORKERS", runtime.NumCPU()),
		},
		Optimizer: portfolio.SolverSettings{
			MaxIterations:      getEnvAsInt("OPTIMIZER_MAX_ITERATIONS", defaults.MaxIterations),
			MaxFuncEvaluations: getEnvAsInt("OPTIMIZER_MAX_FUNC_EVALUATIONS", defaults.MaxFuncEvaluations),
			Tolerance:          getEnvAsFloat("OPTIMIZER_TOLERANCE", defaults.Tolerance),
			ConvergeIterations: getEnvAsInt("OPTIMIZER_CONVERGE_ITERATIONS", defaults.ConvergeIterations),
			Penalty:            getEnvAsFloat("OPTIMIZER_PENALTY", defaults.Penalty),
			Restarts:           getEnvAsInt("OPTIMIZER_RESTARTS", defaults.Restarts),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.MarketData.Source {
	case SourceYahoo, SourceCSV:
	default:
		return fmt.Errorf("MARKET_DATA_SOURCE must be %q or %q, got %q", SourceYahoo, SourceCSV, c.MarketData.Source)
	}
	if c.MarketData.CacheTTL <= 0 {
		return fmt.Errorf("PRICE_CACHE_TTL_HOURS must be positive")
	}
	if c.MarketData.YahooRPS <= 0 {
		return fmt.Errorf("YAHOO_REQUESTS_PER_SECOND must be positive, got %g", c.MarketData.YahooRPS)
	}
	if c.Portfolio.TradingDaysPerYear <= 0 {
		return fmt.Errorf("TRADING_DAYS_PER_YEAR must be positive, got %d", c.Portfolio.TradingDaysPerYear)
	}
	if c.Portfolio.WeightTolerance <= 0 || c.Portfolio.WeightTolerance >= 1 {
		return fmt.Errorf("WEIGHT_TOLERANCE must be in (0, 1), got %g", c.Portfolio.WeightTolerance)
	}
	if c.Portfolio.RandomPortfolios <= 0 {
		return fmt.Errorf("RANDOM_PORTFOLIOS must be positive, got %d", c.Portfolio.RandomPortfolios)
	}
	if c.Portfolio.SamplerWorkers <= 0 {
		return fmt.Errorf("SAMPLER_WORKERS must be positive, got %d", c.Portfolio.SamplerWorkers)
	}
	if c.Optimizer.MaxIterations < 0 || c.Optimizer.MaxFuncEvaluations < 0 {
		return fmt.Errorf("optimizer iteration limits must be positive, or 0 to scale with the instrument count")
	}
	if c.Optimizer.Tolerance <= 0 || c.Optimizer.Penalty <= 0 {
		return fmt.Errorf("optimizer tolerance and penalty must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
