package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aristath/markowitz/internal/domain"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// priceSeries builds a daily series starting at testStart.
func priceSeries(instrument string, prices ...float64) domain.PriceSeries {
	points := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = domain.PricePoint{Date: testStart.AddDate(0, 0, i), Price: p}
	}
	return domain.PriceSeries{Instrument: instrument, Points: points}
}

// seriesFromReturns compounds log returns from a base price of 100.
func seriesFromReturns(instrument string, returns []float64) domain.PriceSeries {
	prices := make([]float64, len(returns)+1)
	prices[0] = 100
	for i, r := range returns {
		prices[i+1] = prices[i] * math.Exp(r)
	}
	return priceSeries(instrument, prices...)
}

func mustEngine(t *testing.T, series ...domain.PriceSeries) *StatisticsEngine {
	t.Helper()
	returns, err := BuildReturnSeries(series)
	require.NoError(t, err)
	engine, err := NewStatisticsEngine(returns, 252, 0)
	require.NoError(t, err)
	return engine
}

// threeAssetReturns builds three deterministic, partially correlated
// return columns with positive drift.
func threeAssetReturns() (a, b, c []float64) {
	const n = 300
	a = make([]float64, n)
	b = make([]float64, n)
	c = make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		a[i] = 0.0008 + 0.012*math.Sin(0.31*x) + 0.004*math.Cos(1.7*x)
		b[i] = 0.0005 + 0.008*math.Sin(0.31*x+1.1) + 0.006*math.Sin(2.3*x)
		c[i] = 0.0003 + 0.005*math.Cos(0.53*x) + 0.002*math.Sin(0.9*x)
	}
	return a, b, c
}

// threeAssetEngine returns an engine over the threeAssetReturns instruments.
func threeAssetEngine(t *testing.T) *StatisticsEngine {
	t.Helper()
	a, b, c := threeAssetReturns()
	return mustEngine(t,
		seriesFromReturns("AAA", a),
		seriesFromReturns("BBB", b),
		seriesFromReturns("CCC", c),
	)
}
