package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/modules/portfolio"
)

func newRandomCommand(a *app) *cobra.Command {
	var (
		window windowFlags
		count  int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Generate random long-only portfolios",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := window.request(time.Now())
			if err != nil {
				return err
			}

			container, _, err := a.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			samples, err := container.PortfolioService.RandomPortfolios(cmd.Context(), req, count, seedFlag(cmd, seed))
			if err != nil {
				printError(cmd.ErrOrStderr(), err)
				return err
			}

			return a.render(cmd, samples, func(w io.Writer) {
				printTitle(w, "Random portfolios")
				printField(w, "Samples", len(samples))
				best, ok := portfolio.BestSample(samples)
				if !ok {
					printField(w, "Best", "no sample has a defined Sharpe ratio")
					return
				}
				fmt.Fprintln(w)
				printTitle(w, "Best sample")
				printStatistics(w, best.Statistics, best.Ratio)
				fmt.Fprintln(w, weightsTable(req.Instruments, best.Weights))
			})
		},
	}

	window.register(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 0, "number of portfolios (default: RANDOM_PORTFOLIOS)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for reproducible output")

	return cmd
}

func newOptimizeCommand(a *app) *cobra.Command {
	var (
		window  windowFlags
		samples int
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Find the maximum Sharpe ratio portfolio",
		Example: `  markowitz optimize -i AAPL,MSFT,GOOG --start 2020-01-01 --end 2024-01-01
  markowitz optimize -i AAPL,MSFT --start 2020-01-01 --samples -1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := window.request(time.Now())
			if err != nil {
				return err
			}

			container, _, err := a.wire()
			if err != nil {
				return err
			}
			defer container.Close()

			analysis, err := container.PortfolioService.Optimize(cmd.Context(), req, portfolio.OptimizeOptions{
				Samples: samples,
				Seed:    seedFlag(cmd, seed),
			})
			if err != nil {
				printError(cmd.ErrOrStderr(), err)
				return err
			}
			analysis.Samples = nil

			return a.render(cmd, analysis, func(w io.Writer) {
				opt := analysis.Optimum
				printTitle(w, "Maximum Sharpe ratio portfolio")
				printField(w, "Run", analysis.RunID)
				printField(w, "Periods", analysis.Periods)
				printField(w, "Solver status", opt.Status)
				printField(w, "Iterations", opt.Iterations)
				printStatistics(w, opt.Statistics, opt.Ratio)
				fmt.Fprintln(w, weightsTable(analysis.Instruments, opt.Weights))
				if analysis.BestSample != nil {
					printField(w, "Best sample", fmt.Sprintf("%.6f", analysis.BestSample.Ratio))
				}
			})
		},
	}

	window.register(cmd)
	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "random portfolios drawn first (0: RANDOM_PORTFOLIOS, negative: none)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for the sampled portfolios")

	return cmd
}
