package portfolio

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/pkg/formulas"
)

// degenerateObjective is returned for iterates whose risk is exactly zero.
const degenerateObjective = 1e10

// Per-instrument search budget used when no explicit limit is configured.
// Nelder-Mead needs a budget that grows with the dimension of the simplex.
const (
	iterationsPerInstrument  = 5000
	evaluationsPerInstrument = 20000
)

// SolverSettings bounds the constrained solver. Zero iteration limits scale
// with the number of instruments; other zero values fall back to
// DefaultSolverSettings.
type SolverSettings struct {
	MaxIterations      int     // 0 scales with the instrument count
	MaxFuncEvaluations int     // 0 scales with the instrument count
	Tolerance          float64 // absolute function convergence threshold
	ConvergeIterations int     // iterations without improvement before convergence
	Penalty            float64 // weight of the distance-to-simplex penalty
	Restarts           int     // extra Nelder-Mead runs seeded from the previous optimum
}

// DefaultSolverSettings returns the settings used when none are configured.
func DefaultSolverSettings() SolverSettings {
	return SolverSettings{
		MaxIterations:      0,
		MaxFuncEvaluations: 0,
		Tolerance:          1e-10,
		ConvergeIterations: 200,
		Penalty:            1000,
		Restarts:           1,
	}
}

func (s SolverSettings) withDefaults() SolverSettings {
	d := DefaultSolverSettings()
	if s.MaxIterations < 0 {
		s.MaxIterations = 0
	}
	if s.MaxFuncEvaluations < 0 {
		s.MaxFuncEvaluations = 0
	}
	if s.Tolerance <= 0 {
		s.Tolerance = d.Tolerance
	}
	if s.ConvergeIterations <= 0 {
		s.ConvergeIterations = d.ConvergeIterations
	}
	if s.Penalty <= 0 {
		s.Penalty = d.Penalty
	}
	if s.Restarts < 0 {
		s.Restarts = 0
	}
	return s
}

// Budget returns the iteration and evaluation limits for n instruments.
func (s SolverSettings) Budget(n int) (iterations, evaluations int) {
	if n < 1 {
		n = 1
	}
	iterations, evaluations = s.MaxIterations, s.MaxFuncEvaluations
	if iterations <= 0 {
		iterations = iterationsPerInstrument * n
	}
	if evaluations <= 0 {
		evaluations = evaluationsPerInstrument * n
	}
	return iterations, evaluations
}

// convergedStatuses are the solver terminations accepted as a valid optimum.
var convergedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionConvergence: true,
	optimize.GradientThreshold:   true,
	optimize.StepConvergence:     true,
	optimize.MethodConverge:      true,
}

// SharpeOptimizer finds the long-only, fully invested portfolio with the
// highest expected_return / risk.
//
// Mathematical formulation:
//
//	minimize   -(μ'w) / sqrt(w'Σw)
//	subject to Σw = 1, 0 ≤ w_i ≤ 1
//
// Nelder-Mead searches R^M; every iterate x is projected onto the simplex
// and the objective adds penalty × ||x - P(x)||², so the constraints hold
// exactly at every evaluated point.
type SharpeOptimizer struct {
	settings SolverSettings
	log      zerolog.Logger
}

// NewSharpeOptimizer creates a new Sharpe-ratio optimizer.
func NewSharpeOptimizer(settings SolverSettings, log zerolog.Logger) *SharpeOptimizer {
	return &SharpeOptimizer{
		settings: settings.withDefaults(),
		log:      log.With().Str("component", "sharpe_optimizer").Logger(),
	}
}

// Settings returns the effective solver settings.
func (o *SharpeOptimizer) Settings() SolverSettings {
	return o.settings
}

// UniformWeights returns the 1/n vector.
func UniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

// Optimize solves the max-Sharpe problem for engine starting from initial.
// A nil initial guess starts from uniform weights. Non-convergence is
// reported as *domain.OptimizationFailedError, never as a result.
func (o *SharpeOptimizer) Optimize(engine *StatisticsEngine, initial []float64) (*domain.OptimizationResult, error) {
	if engine == nil {
		return nil, domain.InvalidInputf("statistics engine is required")
	}
	if engine.Degenerate() {
		return nil, domain.InvalidInputf("at least two return periods are required to optimize, got %d", engine.periods)
	}
	n := engine.NumInstruments()
	if initial == nil {
		initial = UniformWeights(n)
	}
	if _, _, err := engine.Evaluate(initial); err != nil {
		return nil, fmt.Errorf("initial guess: %w", err)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := formulas.ProjectToSimplex(x)
			stats := engine.compute(w)
			obj := degenerateObjective
			if stats.Risk > 0 {
				obj = -stats.ExpectedReturn / stats.Risk
			}
			return obj + o.settings.Penalty*formulas.DistanceSquared(x, w)
		},
	}

	maxIterations, maxEvaluations := o.settings.Budget(n)

	o.log.Debug().
		Int("instruments", n).
		Int("max_iterations", maxIterations).
		Int("max_func_evaluations", maxEvaluations).
		Msg("Starting Sharpe ratio optimization")

	result, err := o.minimize(problem, initial, maxIterations, maxEvaluations)
	if err != nil {
		return nil, err
	}
	iterations := result.Stats.MajorIterations
	evaluations := result.Stats.FuncEvaluations

	for r := 0; r < o.settings.Restarts; r++ {
		restart, err := o.minimize(problem, result.X, maxIterations, maxEvaluations)
		if err != nil {
			o.log.Debug().Err(err).Int("restart", r+1).Msg("Restart did not converge, keeping previous optimum")
			break
		}
		iterations += restart.Stats.MajorIterations
		evaluations += restart.Stats.FuncEvaluations
		if restart.F >= result.F {
			break
		}
		result = restart
	}

	weights := formulas.ProjectToSimplex(result.X)
	if !formulas.Normalize(weights) {
		return nil, &domain.OptimizationFailedError{
			Status:      result.Status.String(),
			LastIterate: append([]float64(nil), result.X...),
			Err:         fmt.Errorf("solver returned a point that cannot be normalized"),
		}
	}
	for i, w := range weights {
		weights[i] = math.Min(1, math.Max(0, w))
	}

	stats, ratio, err := engine.Evaluate(weights)
	if err != nil {
		return nil, fmt.Errorf("optimum: %w", err)
	}

	o.log.Info().
		Str("status", result.Status.String()).
		Int("iterations", iterations).
		Int("func_evaluations", evaluations).
		Float64("expected_return", stats.ExpectedReturn).
		Float64("risk", stats.Risk).
		Float64("sharpe", ratio).
		Msg("Sharpe ratio optimization converged")

	return &domain.OptimizationResult{
		Weights:         weights,
		Statistics:      stats,
		Ratio:           ratio,
		Status:          result.Status.String(),
		Iterations:      iterations,
		FuncEvaluations: evaluations,
	}, nil
}

// minimize runs one Nelder-Mead search and rejects unconverged terminations.
func (o *SharpeOptimizer) minimize(problem optimize.Problem, x0 []float64, maxIterations, maxEvaluations int) (*optimize.Result, error) {
	settings := &optimize.Settings{
		MajorIterations: maxIterations,
		FuncEvaluations: maxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   o.settings.Tolerance,
			Iterations: o.settings.ConvergeIterations,
		},
	}

	start := append([]float64(nil), x0...)
	result, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	if result == nil {
		return nil, &domain.OptimizationFailedError{
			Status:      optimize.Failure.String(),
			LastIterate: start,
			Err:         err,
		}
	}
	if err != nil || !convergedStatuses[result.Status] {
		return nil, &domain.OptimizationFailedError{
			Status:      result.Status.String(),
			LastIterate: formulas.ProjectToSimplex(result.X),
			Err:         err,
		}
	}
	return result, nil
}
