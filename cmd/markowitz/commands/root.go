// Package commands implements the markowitz command line interface.
package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/config"
	"github.com/aristath/markowitz/internal/di"
	"github.com/aristath/markowitz/pkg/logger"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	logLevel string
	pretty   bool
	source   string
	csvDir   string
	noCache  bool
	output   string
}

// app carries the state a command needs after the persistent pre-run
type app struct {
	opts globalOptions
	cfg  *config.Config
	log  zerolog.Logger
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "markowitz",
		Short: "Mean-variance portfolio analysis",
		Long: `Markowitz portfolio analysis on daily price history.

Computes log returns, annualized expected return and risk, random
long-only portfolios and the maximum Sharpe ratio portfolio.

Examples:
  markowitz stats --instruments AAPL,MSFT --start 2020-01-01 --end 2024-01-01 --weights 0.5,0.5
  markowitz optimize --instruments AAPL,MSFT,GOOG --start 2020-01-01 --end 2024-01-01 --seed 42
  markowitz simulate gbm --instrument SPY --start 2023-01-01 --end 2024-01-01
  markowitz serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.logLevel, "log-level", "", "log level (debug|info|warn|error), overrides LOG_LEVEL")
	flags.BoolVar(&a.opts.pretty, "pretty", true, "human readable log output")
	flags.StringVar(&a.opts.source, "source", "", "price source (yahoo|csv), overrides MARKET_DATA_SOURCE")
	flags.StringVar(&a.opts.csvDir, "csv-dir", "", "directory of <SYMBOL>.csv files, overrides CSV_DATA_DIR")
	flags.BoolVar(&a.opts.noCache, "no-cache", false, "bypass the price cache")
	flags.StringVarP(&a.opts.output, "output", "o", "text", "output format (text|json)")

	root.AddCommand(
		newStatsCommand(a),
		newMomentsCommand(a),
		newRandomCommand(a),
		newOptimizeCommand(a),
		newSimulateCommand(a),
		newCacheCommand(a),
		newServeCommand(a),
	)

	return root
}

// Execute runs the root command until it finishes or the process is
// interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.opts.logLevel != "" {
		cfg.LogLevel = a.opts.logLevel
	}
	if a.opts.source != "" {
		cfg.MarketData.Source = a.opts.source
	}
	if a.opts.csvDir != "" {
		cfg.MarketData.CSVDir = a.opts.csvDir
	}
	if a.opts.noCache {
		cfg.MarketData.CacheEnabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: a.opts.pretty,
	})
	logger.SetGlobalLogger(a.log)
	return nil
}

// wire builds the dependency container; callers must Close it.
func (a *app) wire() (*di.Container, *di.JobInstances, error) {
	return di.Wire(a.cfg, a.log)
}
