package portfolio

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/pkg/formulas"
)

// ServiceConfig holds the pipeline parameters.
type ServiceConfig struct {
	PeriodsPerYear   int
	WeightTolerance  float64
	RandomPortfolios int
	Workers          int
	Solver           SolverSettings
}

// Request identifies the instruments and the [Start, End) window to analyze.
type Request struct {
	Instruments []string
	Start       time.Time
	End         time.Time
}

// Validate checks the request before any data is fetched.
func (r Request) Validate() error {
	if len(r.Instruments) == 0 {
		return domain.InvalidInputf("at least one instrument is required")
	}
	seen := make(map[string]bool, len(r.Instruments))
	for _, inst := range r.Instruments {
		key := strings.ToUpper(strings.TrimSpace(inst))
		if key == "" {
			return domain.InvalidInputf("empty instrument identifier")
		}
		if seen[key] {
			return domain.InvalidInputf("duplicate instrument %s", inst)
		}
		seen[key] = true
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return domain.InvalidInputf("start and end dates are required")
	}
	if !r.Start.Before(r.End) {
		return domain.InvalidInputf("start %s is not before end %s",
			r.Start.Format(domain.DateLayout), r.End.Format(domain.DateLayout))
	}
	return nil
}

// StatisticsReport is the outcome of evaluating caller supplied weights.
type StatisticsReport struct {
	RunID       string            `json:"run_id"`
	Instruments []string          `json:"instruments"`
	Periods     int               `json:"periods"`
	Weights     []float64         `json:"weights"`
	Statistics  domain.Statistics `json:"statistics"`
	Ratio       float64           `json:"ratio"`
}

// Analysis is the outcome of one optimization run. Samples are kept only as
// visualization context; the optimum is solved independently of them.
type Analysis struct {
	RunID       string                     `json:"run_id"`
	Instruments []string                   `json:"instruments"`
	Periods     int                        `json:"periods"`
	Optimum     *domain.OptimizationResult `json:"optimum"`
	Samples     []domain.PortfolioSample   `json:"samples,omitempty"`
	BestSample  *domain.PortfolioSample    `json:"best_sample,omitempty"`
}

// Moments are the annualized mean returns and covariance of a request,
// plus each instrument's standalone volatility and Sharpe ratio. Sharpe and
// Correlation entries are nil where an instrument has zero volatility.
type Moments struct {
	Instruments []string     `json:"instruments"`
	Periods     int          `json:"periods"`
	FirstDate   string       `json:"first_date"`
	LastDate    string       `json:"last_date"`
	Means       []float64    `json:"means"`
	Volatility  []float64    `json:"volatility"`
	Sharpe      []*float64   `json:"sharpe"`
	Covariance  [][]float64  `json:"covariance"`
	Correlation [][]*float64 `json:"correlation"`
}

// OptimizeOptions tunes a single Optimize call.
type OptimizeOptions struct {
	Samples int     // 0 uses the configured default, negative skips sampling
	Seed    *uint64 // seed for the random portfolios
}

// Service runs the full pipeline: prices -> returns -> statistics ->
// random portfolios -> Sharpe optimum.
type Service struct {
	provider  PriceProvider
	align     SeriesAligner
	optimizer *SharpeOptimizer
	cfg       ServiceConfig
	log       zerolog.Logger
}

// NewService creates the portfolio service. align may be nil when the
// provider already returns series on a shared date axis.
func NewService(provider PriceProvider, align SeriesAligner, cfg ServiceConfig, log zerolog.Logger) *Service {
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = formulas.TradingDaysPerYear
	}
	if cfg.WeightTolerance <= 0 {
		cfg.WeightTolerance = DefaultWeightTolerance
	}
	l := log.With().Str("service", "portfolio").Logger()
	return &Service{
		provider:  provider,
		align:     align,
		optimizer: NewSharpeOptimizer(cfg.Solver, l),
		cfg:       cfg,
		log:       l,
	}
}

// LoadReturns fetches prices for every instrument and derives the return
// series. Provider errors are returned unchanged apart from context.
func (s *Service) LoadReturns(ctx context.Context, req Request) (*domain.ReturnSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	series := make([]domain.PriceSeries, 0, len(req.Instruments))
	for _, inst := range req.Instruments {
		ps, err := s.provider.FetchPrices(ctx, inst, req.Start, req.End)
		if err != nil {
			return nil, fmt.Errorf("fetch prices for %s: %w", inst, err)
		}
		s.log.Debug().
			Str("instrument", inst).
			Int("points", len(ps.Points)).
			Msg("Fetched price series")
		series = append(series, ps)
	}

	if s.align != nil {
		aligned, err := s.align(series)
		if err != nil {
			return nil, err
		}
		series = aligned
	}

	returns, err := BuildReturnSeries(series)
	if err != nil {
		return nil, err
	}
	if dates := returns.Dates(); len(dates) > 0 {
		s.log.Debug().
			Int("periods", len(dates)).
			Str("first", dates[0].Format(domain.DateLayout)).
			Str("last", dates[len(dates)-1].Format(domain.DateLayout)).
			Msg("Built return series")
	}
	return returns, nil
}

// Engine builds a statistics engine for the request.
func (s *Service) Engine(ctx context.Context, req Request) (*StatisticsEngine, error) {
	returns, err := s.LoadReturns(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewStatisticsEngine(returns, s.cfg.PeriodsPerYear, s.cfg.WeightTolerance)
}

// Moments returns the annualized inputs of the mean-variance model.
func (s *Service) Moments(ctx context.Context, req Request) (*Moments, error) {
	returns, err := s.LoadReturns(ctx, req)
	if err != nil {
		return nil, err
	}
	engine, err := NewStatisticsEngine(returns, s.cfg.PeriodsPerYear, s.cfg.WeightTolerance)
	if err != nil {
		return nil, err
	}

	n := returns.NumInstruments()
	columns := make([][]float64, n)
	m := &Moments{
		Instruments: engine.Instruments(),
		Periods:     returns.Periods(),
		Means:       engine.AnnualizedMeans(),
		Volatility:  make([]float64, n),
		Sharpe:      make([]*float64, n),
		Covariance:  make([][]float64, n),
		Correlation: make([][]*float64, n),
	}
	dates := returns.Dates()
	m.FirstDate = dates[0].Format(domain.DateLayout)
	m.LastDate = dates[len(dates)-1].Format(domain.DateLayout)

	for j := 0; j < n; j++ {
		columns[j] = returns.Column(j)
		m.Volatility[j] = formulas.AnnualizedVolatility(columns[j], s.cfg.PeriodsPerYear)
		m.Sharpe[j] = formulas.CalculateSharpeRatio(columns[j], 0, s.cfg.PeriodsPerYear)
	}

	cov := engine.AnnualizedCovariance()
	for i := 0; i < n; i++ {
		m.Covariance[i] = make([]float64, n)
		m.Correlation[i] = make([]*float64, n)
		for j := 0; j < n; j++ {
			m.Covariance[i][j] = cov.At(i, j)
			m.Correlation[i][j] = correlation(columns, m.Volatility, i, j)
		}
	}
	return m, nil
}

// correlation is nil when either column has no variance.
func correlation(columns [][]float64, volatility []float64, i, j int) *float64 {
	if volatility[i] == 0 || volatility[j] == 0 {
		return nil
	}
	rho := 1.0
	if i != j {
		rho = formulas.Correlation(columns[i], columns[j])
	}
	if math.IsNaN(rho) {
		return nil
	}
	return &rho
}

// Statistics evaluates caller supplied target weights.
func (s *Service) Statistics(ctx context.Context, req Request, weights []float64) (*StatisticsReport, error) {
	engine, err := s.Engine(ctx, req)
	if err != nil {
		return nil, err
	}
	stats, ratio, err := engine.Evaluate(weights)
	if err != nil {
		return nil, err
	}
	return &StatisticsReport{
		RunID:       uuid.NewString(),
		Instruments: engine.Instruments(),
		Periods:     engine.periods,
		Weights:     append([]float64(nil), weights...),
		Statistics:  stats,
		Ratio:       ratio,
	}, nil
}

// RandomPortfolios draws count random portfolios for the request.
// count <= 0 uses the configured default.
func (s *Service) RandomPortfolios(ctx context.Context, req Request, count int, seed *uint64) ([]domain.PortfolioSample, error) {
	engine, err := s.Engine(ctx, req)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = s.cfg.RandomPortfolios
	}
	return GenerateRandomPortfolios(ctx, engine, RandomOptions{Count: count, Seed: seed, Workers: s.cfg.Workers})
}

// Optimize runs the random search for context and then solves for the
// maximum Sharpe ratio portfolio, seeding the solver with the first sample
// (uniform weights when sampling is skipped).
func (s *Service) Optimize(ctx context.Context, req Request, opts OptimizeOptions) (*Analysis, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Logger()

	engine, err := s.Engine(ctx, req)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		RunID:       runID,
		Instruments: engine.Instruments(),
		Periods:     engine.periods,
	}

	count := opts.Samples
	if count == 0 {
		count = s.cfg.RandomPortfolios
	}

	var initial []float64
	if count > 0 {
		samples, err := GenerateRandomPortfolios(ctx, engine, RandomOptions{Count: count, Seed: opts.Seed, Workers: s.cfg.Workers})
		if err != nil {
			return nil, err
		}
		analysis.Samples = samples
		if best, ok := BestSample(samples); ok {
			analysis.BestSample = &best
		}
		if samples[0].RatioValid {
			initial = samples[0].Weights
		}
		log.Debug().Int("samples", len(samples)).Msg("Generated random portfolios")
	}

	optimum, err := s.optimizer.Optimize(engine, initial)
	if err != nil {
		log.Warn().Err(err).Msg("Sharpe ratio optimization failed")
		return nil, err
	}
	analysis.Optimum = optimum

	log.Info().
		Strs("instruments", analysis.Instruments).
		Int("periods", analysis.Periods).
		Float64("sharpe", optimum.Ratio).
		Msg("Portfolio optimization completed")

	return analysis, nil
}
