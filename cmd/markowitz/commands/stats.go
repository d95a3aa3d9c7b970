package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/modules/portfolio"
)

func newStatsCommand(a *app) *cobra.Command {
	var (
		window  windowFlags
		weights []float64
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Annualized return, risk and Sharpe ratio of given weights",
		Example: `  markowitz stats -i AAPL,MSFT --start 2020-01-01 --end 2024-01-01 --weights 0.6,0.4
  markowitz stats -i SPY --start 2023-01-01 --weights 1 -o json`,
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

			report, err := container.PortfolioService.Statistics(cmd.Context(), req, weights)
			if err != nil {
				printError(cmd.ErrOrStderr(), err)
				return err
			}

			return a.render(cmd, report, func(w io.Writer) {
				printTitle(w, "Portfolio statistics")
				printField(w, "Run", report.RunID)
				printField(w, "Periods", report.Periods)
				printStatistics(w, report.Statistics, report.Ratio)
				fmt.Fprintln(w, weightsTable(report.Instruments, report.Weights))
			})
		},
	}

	window.register(cmd)
	cmd.Flags().Float64SliceVarP(&weights, "weights", "w", nil, "comma separated weights, one per instrument, summing to 1")
	_ = cmd.MarkFlagRequired("weights")

	return cmd
}

func newMomentsCommand(a *app) *cobra.Command {
	var window windowFlags

	cmd := &cobra.Command{
		Use:   "moments",
		Short: "Annualized mean returns and covariance matrix",
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

			moments, err := container.PortfolioService.Moments(cmd.Context(), req)
			if err != nil {
				printError(cmd.ErrOrStderr(), err)
				return err
			}

			return a.render(cmd, moments, func(w io.Writer) {
				printMoments(w, moments)
			})
		},
	}

	window.register(cmd)
	return cmd
}

func printMoments(w io.Writer, m *portfolio.Moments) {
	printTitle(w, "Annualized moments")
	printField(w, "Periods", m.Periods)
	for i, inst := range m.Instruments {
		sharpe := "n/a"
		if m.Sharpe[i] != nil {
			sharpe = fmt.Sprintf("%.4f", *m.Sharpe[i])
		}
		printField(w, inst, fmt.Sprintf("mean %.6f  vol %.6f  sharpe %s", m.Means[i], m.Volatility[i], sharpe))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s", "")
	for _, inst := range m.Instruments {
		fmt.Fprintf(w, "%12s", inst)
	}
	fmt.Fprintln(w)
	for i, row := range m.Covariance {
		fmt.Fprintf(w, "%-10s", m.Instruments[i])
		for _, v := range row {
			fmt.Fprintf(w, "%12.6f", v)
		}
		fmt.Fprintln(w)
	}
}
