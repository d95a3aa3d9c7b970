package yahoo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnjoon/go-yfinance/pkg/models"

	"github.com/aristath/markowitz/internal/domain"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestPeriodFor(t *testing.T) {
	now := d(2024, 6, 30)
	tests := []struct {
		start time.Time
		want  string
	}{
		{d(2024, 6, 10), "1mo"},
		{d(2024, 4, 15), "3mo"},
		{d(2024, 1, 2), "6mo"},
		{d(2023, 7, 1), "1y"},
		{d(2022, 12, 1), "2y"},
		{d(2020, 1, 1), "5y"},
		{d(2015, 1, 1), "10y"},
		{d(1990, 1, 1), "max"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, PeriodFor(tt.start, now))
		})
	}
}

func TestBarsToSeries(t *testing.T) {
	ny := time.FixedZone("EST", -5*3600)
	bars := []models.Bar{
		{Date: time.Date(2024, 1, 3, 9, 30, 0, 0, ny), Close: 11, AdjClose: 10.5},
		{Date: time.Date(2024, 1, 2, 9, 30, 0, 0, ny), Close: 10, AdjClose: 9.5},
		{Date: time.Date(2023, 12, 29, 9, 30, 0, 0, ny), Close: 9},
		{Date: time.Date(2024, 1, 5, 9, 30, 0, 0, ny), Close: 12},
	}

	series, err := BarsToSeries("SPY", bars, d(2024, 1, 1), d(2024, 1, 5))
	require.NoError(t, err)

	require.Len(t, series.Points, 2)
	assert.Equal(t, d(2024, 1, 2), series.Points[0].Date)
	assert.Equal(t, []float64{9.5, 10.5}, series.Prices(), "prefers AdjClose")
}

func TestBarsToSeries_CloseOnly(t *testing.T) {
	bars := []models.Bar{
		{Date: d(2024, 1, 2), Close: 10},
		{Date: d(2024, 1, 3), Close: 11},
	}
	series, err := BarsToSeries("SPY", bars, d(2024, 1, 1), d(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, series.Prices())
}

func TestBarsToSeries_MissingAdjCloseIsGap(t *testing.T) {
	bars := []models.Bar{
		{Date: d(2024, 1, 2), Close: 10, AdjClose: 9.5},
		{Date: d(2024, 1, 3), Close: 11},
		{Date: d(2024, 1, 4), Close: 12, AdjClose: 11.4},
	}

	_, err := BarsToSeries("SPY", bars, d(2024, 1, 1), d(2024, 2, 1))
	var gap *domain.GapError
	require.True(t, errors.As(err, &gap), "a raw close must not stand in for a missing adjusted close")
	assert.Equal(t, []time.Time{d(2024, 1, 3)}, gap.Dates)
}

func TestBarsToSeries_Gaps(t *testing.T) {
	bars := []models.Bar{
		{Date: d(2024, 1, 2), Close: 10},
		{Date: d(2024, 1, 3), Close: math.NaN()},
		{Date: d(2024, 1, 4), Close: 0},
	}

	_, err := BarsToSeries("SPY", bars, d(2024, 1, 1), d(2024, 2, 1))
	var gap *domain.GapError
	require.True(t, errors.As(err, &gap))
	assert.Equal(t, []time.Time{d(2024, 1, 3), d(2024, 1, 4)}, gap.Dates)
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestBarsToSeries_DuplicateDay(t *testing.T) {
	bars := []models.Bar{
		{Date: d(2024, 1, 2), Close: 10},
		{Date: d(2024, 1, 3), Close: 11},
		{Date: d(2024, 1, 3).Add(15 * time.Hour), Close: 11.5},
	}
	series, err := BarsToSeries("SPY", bars, d(2024, 1, 1), d(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11.5}, series.Prices())
}

func TestBarsToSeries_Empty(t *testing.T) {
	_, err := BarsToSeries("SPY", nil, d(2024, 1, 1), d(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestClientFetchPrices(t *testing.T) {
	c := NewClient(0, zerolog.Nop())
	c.now = func() time.Time { return d(2024, 2, 1) }

	var gotSymbol, gotPeriod string
	c.history = func(symbol, period string) ([]models.Bar, error) {
		gotSymbol, gotPeriod = symbol, period
		return []models.Bar{
			{Date: d(2024, 1, 2), Close: 10},
			{Date: d(2024, 1, 3), Close: 11},
		}, nil
	}

	series, err := c.FetchPrices(context.Background(), " spy", d(2024, 1, 1), d(2024, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, "SPY", gotSymbol)
	assert.Equal(t, "1mo", gotPeriod)
	assert.Equal(t, []float64{10, 11}, series.Prices())
	assert.Equal(t, "yahoo", c.Name())
}

func TestClientFetchPrices_UpstreamError(t *testing.T) {
	c := NewClient(0, zerolog.Nop())
	c.history = func(symbol, period string) ([]models.Bar, error) {
		return nil, errors.New("429 too many requests")
	}

	_, err := c.FetchPrices(context.Background(), "SPY", d(2024, 1, 1), d(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "429")
}

func TestClientFetchPrices_RateLimited(t *testing.T) {
	c := NewClient(0.001, zerolog.Nop())
	c.now = func() time.Time { return d(2024, 2, 1) }
	calls := 0
	c.history = func(symbol, period string) ([]models.Bar, error) {
		calls++
		return []models.Bar{{Date: d(2024, 1, 2), Close: 10}}, nil
	}

	_, err := c.FetchPrices(context.Background(), "SPY", d(2024, 1, 1), d(2024, 2, 1))
	require.NoError(t, err)

	// The next token is ~1000s away, well past the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = c.FetchPrices(ctx, "SPY", d(2024, 1, 1), d(2024, 2, 1))
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
