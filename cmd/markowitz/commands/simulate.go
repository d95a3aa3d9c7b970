package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/internal/modules/simulation"
)

func newSimulateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate Wiener and geometric Brownian motion paths",
	}
	cmd.AddCommand(newWienerCommand(a), newGBMCommand(a))
	return cmd
}

func newWienerCommand(a *app) *cobra.Command {
	var (
		steps int
		dt    float64
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "wiener",
		Short: "Simulate a standard Wiener process",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := simulation.WienerProcess(simulation.WienerOptions{
				Steps: steps,
				Dt:    dt,
				Seed:  seedFlag(cmd, seed),
			})
			if err != nil {
				return err
			}

			return a.render(cmd, path, func(w io.Writer) {
				printTitle(w, "Wiener process")
				printField(w, "Steps", steps)
				printField(w, "dt", dt)
				printField(w, "Final value", fmt.Sprintf("%.6f", path.Values[len(path.Values)-1]))
			})
		},
	}

	cmd.Flags().IntVar(&steps, "steps", simulation.DefaultWienerSteps, "number of increments")
	cmd.Flags().Float64Var(&dt, "dt", simulation.DefaultWienerDt, "variance of each increment")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")

	return cmd
}

func newGBMCommand(a *app) *cobra.Command {
	var (
		opts       simulation.GBMOptions
		seed       uint64
		instrument string
		start, end string
		showPaths  bool
	)

	cmd := &cobra.Command{
		Use:   "gbm",
		Short: "Simulate geometric Brownian motion price paths",
		Long: `Simulate geometric Brownian motion price paths.

With --instrument the per-day drift and volatility are estimated from the
instrument's history in [--start, --end) and the paths start at its last
price; otherwise --s0, --mu and --sigma are used as given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Seed = seedFlag(cmd, seed)
			opts.Workers = a.cfg.Portfolio.SamplerWorkers

			if instrument != "" {
				if err := a.calibrate(cmd, &opts, instrument, start, end); err != nil {
					printError(cmd.ErrOrStderr(), err)
					return err
				}
			}

			result, err := simulation.GeometricBrownianMotion(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !showPaths {
				result.Paths = nil
			}

			return a.render(cmd, result, func(w io.Writer) {
				printTitle(w, "Geometric Brownian motion")
				printField(w, "S0", fmt.Sprintf("%.4f", opts.S0))
				printField(w, "Drift", fmt.Sprintf("%.6f", opts.Mu))
				printField(w, "Volatility", fmt.Sprintf("%.6f", opts.Sigma))
				printField(w, "Paths", opts.Paths)
				printField(w, "Steps", opts.Steps)
				printField(w, "Expected final", fmt.Sprintf("%.4f", result.ExpectedFinal))
			})
		},
	}

	cmd.Flags().Float64Var(&opts.S0, "s0", 100, "initial price")
	cmd.Flags().Float64Var(&opts.Mu, "mu", 0.0005, "per-step drift")
	cmd.Flags().Float64Var(&opts.Sigma, "sigma", 0.01, "per-step volatility")
	cmd.Flags().IntVar(&opts.Steps, "steps", simulation.DefaultGBMSteps, "steps per path")
	cmd.Flags().IntVar(&opts.Paths, "paths", simulation.DefaultGBMPaths, "number of paths")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&instrument, "instrument", "", "calibrate drift and volatility from this instrument")
	cmd.Flags().StringVar(&start, "start", "", "calibration window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "calibration window end (YYYY-MM-DD, default: today)")
	cmd.Flags().BoolVar(&showPaths, "paths-output", false, "include every path in JSON output")

	return cmd
}

func (a *app) calibrate(cmd *cobra.Command, opts *simulation.GBMOptions, instrument, start, end string) error {
	window := windowFlags{instruments: []string{instrument}, start: start, end: end}
	req, err := window.request(time.Now())
	if err != nil {
		return err
	}

	container, _, err := a.wire()
	if err != nil {
		return err
	}
	defer container.Close()

	series, err := container.Prices.FetchPrices(cmd.Context(), instrument, req.Start, req.End)
	if err != nil {
		return err
	}
	mu, sigma, err := simulation.EstimateParameters(series.Prices())
	if err != nil {
		return err
	}
	last, ok := series.Last()
	if !ok {
		return domain.DataUnavailablef("no prices for %s", instrument)
	}

	opts.S0, opts.Mu, opts.Sigma = last.Price, mu, sigma
	a.log.Debug().
		Str("instrument", instrument).
		Float64("mu", mu).
		Float64("sigma", sigma).
		Msg("Calibrated random walk")
	return nil
}
