package simulation

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/pkg/formulas"
)

// Defaults for the stock price random walk: one trading year of daily steps.
const (
	DefaultGBMSteps = 252
	DefaultGBMPaths = 1000
)

// GBMOptions configures GeometricBrownianMotion. Mu and Sigma are per-step
// drift and volatility.
type GBMOptions struct {
	S0      float64
	Mu      float64
	Sigma   float64
	Steps   int
	Paths   int
	Seed    *uint64
	Workers int // <= 0 uses runtime.NumCPU()
}

func (o GBMOptions) validate() error {
	if o.S0 <= 0 || math.IsNaN(o.S0) || math.IsInf(o.S0, 0) {
		return domain.InvalidInputf("initial price must be positive, got %v", o.S0)
	}
	if math.IsNaN(o.Mu) || math.IsInf(o.Mu, 0) {
		return domain.InvalidInputf("drift must be finite, got %v", o.Mu)
	}
	if o.Sigma < 0 || math.IsNaN(o.Sigma) || math.IsInf(o.Sigma, 0) {
		return domain.InvalidInputf("volatility must be non-negative, got %v", o.Sigma)
	}
	if o.Steps <= 0 {
		return domain.InvalidInputf("steps must be positive, got %d", o.Steps)
	}
	if o.Paths <= 0 {
		return domain.InvalidInputf("paths must be positive, got %d", o.Paths)
	}
	return nil
}

// GBMResult holds the simulated price paths. Every path has Steps+1 points
// and starts at S0.
type GBMResult struct {
	Paths         [][]float64 `json:"paths"`
	Mean          []float64   `json:"mean"`
	ExpectedFinal float64     `json:"expected_final"`
}

// GeometricBrownianMotion simulates price paths with unit time steps:
//
//	S_{j+1} = S_j × exp((μ - σ²/2) + σ Z),  Z ~ N(0, 1)
//
// Path p draws from its own PCG stream keyed by (seed, p), so a fixed seed
// gives the same paths for any worker count.
func GeometricBrownianMotion(ctx context.Context, opts GBMOptions) (*GBMResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	seed := seedOrRandom(opts.Seed)
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	drift := opts.Mu - 0.5*opts.Sigma*opts.Sigma

	paths := make([][]float64, opts.Paths)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for p := 0; p < opts.Paths; p++ {
		idx := p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			z := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seed, uint64(idx))}

			path := make([]float64, opts.Steps+1)
			path[0] = opts.S0
			for j := 1; j <= opts.Steps; j++ {
				path[j] = path[j-1] * math.Exp(drift+opts.Sigma*z.Rand())
			}
			paths[idx] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	mean, err := MeanPath(paths)
	if err != nil {
		return nil, err
	}

	return &GBMResult{
		Paths:         paths,
		Mean:          mean,
		ExpectedFinal: mean[len(mean)-1],
	}, nil
}

// MeanPath averages the paths point by point.
func MeanPath(paths [][]float64) ([]float64, error) {
	if len(paths) == 0 {
		return nil, domain.InvalidInputf("no paths to average")
	}
	n := len(paths[0])
	mean := make([]float64, n)
	for i, p := range paths {
		if len(p) != n {
			return nil, domain.InvalidInputf("path %d has %d points, expected %d", i, len(p), n)
		}
		for j, v := range p {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(paths))
	}
	return mean, nil
}

// EstimateParameters calibrates per-step drift and volatility from a price
// history. The mean log return m and its sample deviation s give σ = s and
// μ = m + s²/2.
func EstimateParameters(prices []float64) (mu, sigma float64, err error) {
	if len(prices) < 3 {
		return 0, 0, domain.InvalidInputf("need at least 3 prices to estimate volatility, got %d", len(prices))
	}
	for _, p := range prices {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, 0, domain.InvalidInputf("non-positive price %v", p)
		}
	}
	returns := formulas.LogReturns(prices)
	sigma = formulas.StdDev(returns)
	mu = formulas.Mean(returns) + 0.5*sigma*sigma
	return mu, sigma, nil
}
