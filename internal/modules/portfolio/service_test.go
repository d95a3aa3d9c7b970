package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/markowitz/internal/domain"
)

// fakeProvider serves fixed series and records the instruments requested.
type fakeProvider struct {
	mu     sync.Mutex
	series map[string]domain.PriceSeries
	errs   map[string]error
	calls  []string
}

func (p *fakeProvider) FetchPrices(ctx context.Context, instrument string, start, end time.Time) (domain.PriceSeries, error) {
	p.mu.Lock()
	p.calls = append(p.calls, instrument)
	p.mu.Unlock()

	if err := p.errs[instrument]; err != nil {
		return domain.PriceSeries{}, err
	}
	s, ok := p.series[instrument]
	if !ok {
		return domain.PriceSeries{}, domain.DataUnavailablef("unknown instrument %s", instrument)
	}
	return s, nil
}

func scenarioProvider() *fakeProvider {
	return &fakeProvider{
		series: map[string]domain.PriceSeries{
			"A": priceSeries("A", 100, 102, 101, 105),
		},
	}
}

func request(instruments ...string) Request {
	return Request{
		Instruments: instruments,
		Start:       testStart,
		End:         testStart.AddDate(0, 1, 0),
	}
}

func twoAssetProvider(t *testing.T) *fakeProvider {
	t.Helper()
	a, b, _ := threeAssetReturns()
	return &fakeProvider{series: map[string]domain.PriceSeries{
		"AAA": seriesFromReturns("AAA", a),
		"BBB": seriesFromReturns("BBB", b),
	}}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"valid", request("A", "B"), true},
		{"no instruments", request(), false},
		{"blank instrument", request("A", " "), false},
		{"duplicate ignoring case", request("spy", "SPY"), false},
		{"zero start", Request{Instruments: []string{"A"}, End: testStart}, false},
		{"start equals end", Request{Instruments: []string{"A"}, Start: testStart, End: testStart}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestServiceStatistics(t *testing.T) {
	svc := NewService(scenarioProvider(), nil, ServiceConfig{}, zerolog.Nop())

	report, err := svc.Statistics(context.Background(), request("A"), []float64{1})
	require.NoError(t, err)

	assert.InDelta(t, 4.098374, report.Statistics.ExpectedReturn, 5e-7)
	assert.InDelta(t, 0.389533, report.Statistics.Risk, 5e-7)
	assert.InDelta(t, 10.521260, report.Ratio, 5e-6)
	assert.Equal(t, 3, report.Periods)
	assert.Equal(t, []string{"A"}, report.Instruments)
	assert.NotEmpty(t, report.RunID)
}

func TestServiceStatistics_InvalidWeights(t *testing.T) {
	svc := NewService(scenarioProvider(), nil, ServiceConfig{}, zerolog.Nop())

	_, err := svc.Statistics(context.Background(), request("A"), []float64{0.5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestServiceMoments(t *testing.T) {
	svc := NewService(twoAssetProvider(t), nil, ServiceConfig{}, zerolog.Nop())

	m, err := svc.Moments(context.Background(), request("AAA", "BBB"))
	require.NoError(t, err)

	require.Len(t, m.Means, 2)
	require.Len(t, m.Covariance, 2)
	assert.Equal(t, m.Covariance[0][1], m.Covariance[1][0])
	assert.Positive(t, m.Covariance[0][0])
	assert.Equal(t, 300, m.Periods)
	assert.Equal(t, "2024-01-03", m.FirstDate, "first return ends on the second price date")
	assert.Equal(t, testStart.AddDate(0, 0, 300).Format(domain.DateLayout), m.LastDate)

	// Volatility is the square root of the annualized variance.
	for i := range m.Instruments {
		assert.InDelta(t, math.Sqrt(m.Covariance[i][i]), m.Volatility[i], 1e-12)
		require.NotNil(t, m.Sharpe[i])
		assert.InDelta(t, m.Means[i]/m.Volatility[i], *m.Sharpe[i], 1e-9)
	}
	require.NotNil(t, m.Correlation[0][0])
	assert.Equal(t, 1.0, *m.Correlation[0][0])
	require.NotNil(t, m.Correlation[0][1])
	assert.Equal(t, *m.Correlation[0][1], *m.Correlation[1][0])
	assert.InDelta(t, m.Covariance[0][1]/(m.Volatility[0]*m.Volatility[1]), *m.Correlation[0][1], 1e-9)
}

func TestServiceMoments_ConstantPriceInstrument(t *testing.T) {
	a, _, _ := threeAssetReturns()
	flat := make([]float64, len(a)+1)
	for i := range flat {
		flat[i] = 1
	}
	provider := &fakeProvider{series: map[string]domain.PriceSeries{
		"AAA":  seriesFromReturns("AAA", a),
		"CASH": priceSeries("CASH", flat...),
	}}
	svc := NewService(provider, nil, ServiceConfig{}, zerolog.Nop())

	m, err := svc.Moments(context.Background(), request("AAA", "CASH"))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Volatility[1])
	assert.Nil(t, m.Sharpe[1])
	assert.NotNil(t, m.Correlation[0][0])
	assert.Nil(t, m.Correlation[0][1])
	assert.Nil(t, m.Correlation[1][0])
	assert.Nil(t, m.Correlation[1][1])

	_, err = json.Marshal(m)
	assert.NoError(t, err, "moments must always be encodable")
}

func TestServiceProviderErrorsPropagate(t *testing.T) {
	gap := &domain.GapError{Instrument: "B", Dates: []time.Time{testStart}}
	provider := scenarioProvider()
	provider.errs = map[string]error{"B": gap}
	svc := NewService(provider, nil, ServiceConfig{}, zerolog.Nop())

	_, err := svc.Statistics(context.Background(), request("A", "B"), []float64{0.5, 0.5})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)

	var gotGap *domain.GapError
	require.True(t, errors.As(err, &gotGap))
	assert.Same(t, gap, gotGap)
	assert.Contains(t, err.Error(), "fetch prices for B")
}

func TestServiceInvalidRequestSkipsFetch(t *testing.T) {
	provider := scenarioProvider()
	svc := NewService(provider, nil, ServiceConfig{}, zerolog.Nop())

	_, err := svc.Optimize(context.Background(), request(), OptimizeOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, provider.calls)
}

func TestServiceAlignerIsApplied(t *testing.T) {
	alignErr := domain.DataUnavailablef("misaligned")
	var seen int
	align := func(series []domain.PriceSeries) ([]domain.PriceSeries, error) {
		seen = len(series)
		return nil, alignErr
	}
	svc := NewService(twoAssetProvider(t), align, ServiceConfig{}, zerolog.Nop())

	_, err := svc.Moments(context.Background(), request("AAA", "BBB"))
	assert.ErrorIs(t, err, alignErr)
	assert.Equal(t, 2, seen)
}

func TestServiceRandomPortfolios(t *testing.T) {
	svc := NewService(twoAssetProvider(t), nil, ServiceConfig{RandomPortfolios: 40, Workers: 3}, zerolog.Nop())
	seed := uint64(99)

	samples, err := svc.RandomPortfolios(context.Background(), request("AAA", "BBB"), 0, &seed)
	require.NoError(t, err)
	assert.Len(t, samples, 40, "count <= 0 uses the configured default")

	again, err := svc.RandomPortfolios(context.Background(), request("AAA", "BBB"), 0, &seed)
	require.NoError(t, err)
	assert.Equal(t, samples, again)

	few, err := svc.RandomPortfolios(context.Background(), request("AAA", "BBB"), 5, &seed)
	require.NoError(t, err)
	assert.Len(t, few, 5)
}

func TestServiceOptimize(t *testing.T) {
	svc := NewService(twoAssetProvider(t), nil, ServiceConfig{RandomPortfolios: 500, Workers: 2}, zerolog.Nop())
	seed := uint64(1)

	analysis, err := svc.Optimize(context.Background(), request("AAA", "BBB"), OptimizeOptions{Seed: &seed})
	require.NoError(t, err)

	assert.NotEmpty(t, analysis.RunID)
	assert.Len(t, analysis.Samples, 500)
	require.NotNil(t, analysis.BestSample)
	require.NotNil(t, analysis.Optimum)

	sum := 0.0
	for _, w := range analysis.Optimum.Weights {
		assert.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.GreaterOrEqual(t, analysis.Optimum.Ratio, analysis.BestSample.Ratio-1e-4*math.Abs(analysis.BestSample.Ratio))
}

func TestServiceOptimize_SkipSamples(t *testing.T) {
	svc := NewService(twoAssetProvider(t), nil, ServiceConfig{RandomPortfolios: 500}, zerolog.Nop())

	analysis, err := svc.Optimize(context.Background(), request("AAA", "BBB"), OptimizeOptions{Samples: -1})
	require.NoError(t, err)
	assert.Empty(t, analysis.Samples)
	assert.Nil(t, analysis.BestSample)
	assert.NotNil(t, analysis.Optimum)
}

func TestServiceOptimize_Failure(t *testing.T) {
	cfg := ServiceConfig{Solver: SolverSettings{MaxIterations: 1, ConvergeIterations: 500}}
	svc := NewService(twoAssetProvider(t), nil, cfg, zerolog.Nop())

	_, err := svc.Optimize(context.Background(), request("AAA", "BBB"), OptimizeOptions{Samples: -1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOptimizationFailed)

	var failed *domain.OptimizationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Len(t, failed.LastIterate, 2)
}
