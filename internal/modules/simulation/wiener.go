// Package simulation generates sample paths of the stochastic processes
// behind the random walk view of asset prices.
package simulation

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/markowitz/internal/domain"
)

// Default process parameters.
const (
	DefaultWienerSteps = 1000
	DefaultWienerDt    = 0.1
)

// WienerOptions configures WienerProcess.
type WienerOptions struct {
	Steps int
	Dt    float64
	Seed  *uint64 // nil draws a fresh seed
}

// WienerPath is one realization of a standard Wiener process.
type WienerPath struct {
	Times  []float64 `json:"times"`
	Values []float64 `json:"values"`
}

// WienerProcess simulates W with W_0 = 0 and independent increments
// W_k - W_{k-1} ~ N(0, dt). Times are the step indices 0..Steps.
func WienerProcess(opts WienerOptions) (*WienerPath, error) {
	if opts.Steps <= 0 {
		return nil, domain.InvalidInputf("steps must be positive, got %d", opts.Steps)
	}
	if opts.Dt <= 0 || math.IsNaN(opts.Dt) || math.IsInf(opts.Dt, 0) {
		return nil, domain.InvalidInputf("dt must be positive, got %v", opts.Dt)
	}

	normal := distuv.Normal{
		Mu:    0,
		Sigma: math.Sqrt(opts.Dt),
		Src:   rand.NewPCG(seedOrRandom(opts.Seed), 0),
	}

	path := &WienerPath{
		Times:  make([]float64, opts.Steps+1),
		Values: make([]float64, opts.Steps+1),
	}
	for k := 1; k <= opts.Steps; k++ {
		path.Times[k] = float64(k)
		path.Values[k] = path.Values[k-1] + normal.Rand()
	}
	return path, nil
}

func seedOrRandom(seed *uint64) uint64 {
	if seed != nil {
		return *seed
	}
	return rand.Uint64()
}
