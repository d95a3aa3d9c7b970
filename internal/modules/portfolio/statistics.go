package portfolio

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/pkg/formulas"
)

// DefaultWeightTolerance is how far Σw may drift from 1.
const DefaultWeightTolerance = 1e-6

// StatisticsEngine computes annualized portfolio statistics against one
// return series. The per-instrument means and the annualized covariance are
// computed once at construction; the engine is immutable afterwards, so
// Compute is a pure function of its weights.
type StatisticsEngine struct {
	instruments     []string
	periods         int
	periodsPerYear  float64
	weightTolerance float64
	means           []float64
	cov             *mat.SymDense
}

// NewStatisticsEngine prepares an engine for returns. periodsPerYear is the
// annualization factor (252 for daily data). weightTolerance <= 0 selects
// DefaultWeightTolerance.
func NewStatisticsEngine(returns *domain.ReturnSeries, periodsPerYear int, weightTolerance float64) (*StatisticsEngine, error) {
	if returns == nil || returns.Periods() == 0 {
		return nil, domain.InvalidInputf("return series is empty")
	}
	if periodsPerYear <= 0 {
		return nil, domain.InvalidInputf("annualization factor must be positive, got %d", periodsPerYear)
	}
	if weightTolerance <= 0 {
		weightTolerance = DefaultWeightTolerance
	}

	data := returns.Matrix()
	factor := float64(periodsPerYear)

	return &StatisticsEngine{
		instruments:     returns.Instruments(),
		periods:         returns.Periods(),
		periodsPerYear:  factor,
		weightTolerance: weightTolerance,
		means:           formulas.ColumnMeans(data),
		cov:             formulas.CovarianceMatrix(data, factor),
	}, nil
}

// Instruments returns the column labels in weight order.
func (e *StatisticsEngine) Instruments() []string {
	return append([]string(nil), e.instruments...)
}

// NumInstruments is the expected weight vector length.
func (e *StatisticsEngine) NumInstruments() int {
	return len(e.instruments)
}

// Degenerate reports whether the series has too few rows for a covariance.
func (e *StatisticsEngine) Degenerate() bool {
	return e.periods < 2
}

// AnnualizedCovariance returns a copy of the annualized covariance matrix.
func (e *StatisticsEngine) AnnualizedCovariance() *mat.SymDense {
	n := len(e.instruments)
	cp := mat.NewSymDense(n, nil)
	cp.CopySym(e.cov)
	return cp
}

// AnnualizedMeans returns periodsPerYear × mean return per instrument.
func (e *StatisticsEngine) AnnualizedMeans() []float64 {
	out := make([]float64, len(e.means))
	floats.ScaleTo(out, e.periodsPerYear, e.means)
	return out
}

// ValidateWeights checks length, bounds and the sum-to-one invariant.
func (e *StatisticsEngine) ValidateWeights(weights []float64) error {
	if len(weights) != len(e.instruments) {
		return domain.InvalidInputf("expected %d weights, got %d", len(e.instruments), len(weights))
	}
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 || w > 1 {
			return domain.InvalidInputf("weight %d (%s) = %v is outside [0,1]", i, e.instruments[i], w)
		}
	}
	if sum := floats.Sum(weights); math.Abs(sum-1) > e.weightTolerance {
		return domain.InvalidInputf("weights sum to %v, expected 1 within %g", sum, e.weightTolerance)
	}
	return nil
}

// Compute returns the annualized expected return and risk of weights.
//
//	expected_return = periodsPerYear × Σ mean_i × w_i
//	risk            = sqrt(wᵀ Σ w), Σ = periodsPerYear × sample covariance
func (e *StatisticsEngine) Compute(weights []float64) (domain.Statistics, error) {
	if err := e.ValidateWeights(weights); err != nil {
		return domain.Statistics{}, err
	}
	return e.compute(weights), nil
}

// compute skips validation; callers guarantee a feasible vector.
func (e *StatisticsEngine) compute(weights []float64) domain.Statistics {
	expected := e.periodsPerYear * floats.Dot(e.means, weights)

	w := mat.NewVecDense(len(weights), weights)
	variance := mat.Inner(w, e.cov, w)

	return domain.Statistics{
		ExpectedReturn: expected,
		Risk:           math.Sqrt(math.Max(variance, 0)),
	}
}

// Evaluate computes statistics and the Sharpe ratio in one call.
func (e *StatisticsEngine) Evaluate(weights []float64) (domain.Statistics, float64, error) {
	stats, err := e.Compute(weights)
	if err != nil {
		return domain.Statistics{}, 0, err
	}
	ratio, err := stats.SharpeRatio()
	if err != nil {
		return stats, 0, err
	}
	return stats, ratio, nil
}
