package portfolio

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/pkg/formulas"
)

// sampleChunkSize is the number of portfolios drawn from one random stream.
// It is fixed so a seeded run produces the same samples for any worker count.
const sampleChunkSize = 256

// RandomOptions configures GenerateRandomPortfolios.
type RandomOptions struct {
	Count   int
	Seed    *uint64 // nil draws a fresh seed
	Workers int     // <= 0 uses runtime.NumCPU()
}

// RandomWeights draws n independent uniforms and renormalizes them to sum to
// one. The result is a valid simplex point but is not uniformly distributed
// over the simplex; it leans towards the centroid.
func RandomWeights(rng *rand.Rand, n int) []float64 {
	w := make([]float64, n)
	for {
		for i := range w {
			w[i] = rng.Float64()
		}
		if formulas.Normalize(w) {
			return w
		}
	}
}

// GenerateRandomPortfolios draws opts.Count random weight vectors and
// computes their statistics against engine. Samples are produced in chunks
// on independent PCG streams keyed by (seed, chunk index) and stored by
// index, so a fixed seed yields identical output regardless of scheduling.
func GenerateRandomPortfolios(ctx context.Context, engine *StatisticsEngine, opts RandomOptions) ([]domain.PortfolioSample, error) {
	if engine == nil {
		return nil, domain.InvalidInputf("statistics engine is required")
	}
	if opts.Count <= 0 {
		return nil, domain.InvalidInputf("sample count must be positive, got %d", opts.Count)
	}

	seed := rand.Uint64()
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	n := engine.NumInstruments()
	samples := make([]domain.PortfolioSample, opts.Count)
	chunks := (opts.Count + sampleChunkSize - 1) / sampleChunkSize

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for c := 0; c < chunks; c++ {
		chunk := c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(chunk)))

			start := chunk * sampleChunkSize
			end := min(start+sampleChunkSize, opts.Count)
			for i := start; i < end; i++ {
				w := RandomWeights(rng, n)
				stats := engine.compute(w)
				ratio, err := stats.SharpeRatio()
				samples[i] = domain.PortfolioSample{
					Weights:    w,
					Statistics: stats,
					Ratio:      ratio,
					RatioValid: err == nil,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

// BestSample returns the sample with the highest defined Sharpe ratio.
func BestSample(samples []domain.PortfolioSample) (domain.PortfolioSample, bool) {
	best := -1
	for i, s := range samples {
		if !s.RatioValid {
			continue
		}
		if best < 0 || s.Ratio > samples[best].Ratio {
			best = i
		}
	}
	if best < 0 {
		return domain.PortfolioSample{}, false
	}
	return samples[best], true
}
