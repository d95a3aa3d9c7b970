// Package yahoo fetches daily price history from Yahoo Finance using the
// go-yfinance library.
package yahoo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
	"golang.org/x/time/rate"

	"github.com/aristath/markowitz/internal/domain"
)

// historyFunc loads daily bars for a symbol over a Yahoo period string.
type historyFunc func(symbol, period string) ([]models.Bar, error)

// DefaultRequestsPerSecond keeps bulk runs under Yahoo's throttling threshold.
const DefaultRequestsPerSecond = 2.0

// Client implements marketdata.Provider on top of go-yfinance.
type Client struct {
	history historyFunc
	limiter *rate.Limiter
	now     func() time.Time
	log     zerolog.Logger
}

// NewClient creates a Yahoo Finance price client issuing at most
// requestsPerSecond history calls. Non-positive values use the default.
func NewClient(requestsPerSecond float64, log zerolog.Logger) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &Client{
		history: fetchHistory,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		now:     time.Now,
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// Name identifies the source in cache keys.
func (c *Client) Name() string {
	return "yahoo"
}

func fetchHistory(symbol, period string) ([]models.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}
	return bars, nil
}

// FetchPrices implements marketdata.Provider. The smallest Yahoo period that
// reaches back to start is requested and the bars are clipped to
// [start, end). Calls wait on the rate limiter; errors are not retried.
func (c *Client) FetchPrices(ctx context.Context, instrument string, start, end time.Time) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}

	symbol := strings.ToUpper(strings.TrimSpace(instrument))
	period := PeriodFor(start, c.now())

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.PriceSeries{}, err
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Msg("Fetching historical prices")

	bars, err := c.history(symbol, period)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("%w: yahoo %s: %v", domain.ErrDataUnavailable, symbol, err)
	}

	series, err := BarsToSeries(strings.TrimSpace(instrument), bars, start, end)
	if err != nil {
		return domain.PriceSeries{}, err
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Int("points", len(series.Points)).
		Msg("Fetched historical prices")

	return series, nil
}

// periods are the Yahoo range strings with the span each one covers.
var periods = []struct {
	name string
	span time.Duration
}{
	{"1mo", 31 * 24 * time.Hour},
	{"3mo", 92 * 24 * time.Hour},
	{"6mo", 183 * 24 * time.Hour},
	{"1y", 366 * 24 * time.Hour},
	{"2y", 731 * 24 * time.Hour},
	{"5y", 1827 * 24 * time.Hour},
	{"10y", 3653 * 24 * time.Hour},
}

// PeriodFor returns the smallest Yahoo period covering [start, now].
func PeriodFor(start, now time.Time) string {
	need := now.Sub(start)
	for _, p := range periods {
		if need <= p.span {
			return p.name
		}
	}
	return "max"
}

// BarsToSeries converts daily bars to a price series clipped to
// [start, end). Dates are normalized to UTC calendar days. The adjusted
// close is used for the whole series when any bar in the window carries
// one, otherwise the close; the two are never mixed. Bars without a usable
// price in the chosen column are reported as a *domain.GapError rather than
// filled.
func BarsToSeries(instrument string, bars []models.Bar, start, end time.Time) (domain.PriceSeries, error) {
	series := domain.PriceSeries{Instrument: instrument}
	var gaps []time.Time

	inWindow := make([]models.Bar, 0, len(bars))
	adjusted := false
	for _, bar := range bars {
		date := utcDay(bar.Date)
		if date.Before(start) || !date.Before(end) {
			continue
		}
		inWindow = append(inWindow, bar)
		if usable(bar.AdjClose) {
			adjusted = true
		}
	}

	for _, bar := range inWindow {
		date := utcDay(bar.Date)
		price := bar.Close
		if adjusted {
			price = bar.AdjClose
		}
		if !usable(price) {
			gaps = append(gaps, date)
			continue
		}
		series.Points = append(series.Points, domain.PricePoint{Date: date, Price: price})
	}

	if len(gaps) > 0 {
		return domain.PriceSeries{}, &domain.GapError{Instrument: instrument, Dates: gaps}
	}
	if len(series.Points) == 0 {
		return domain.PriceSeries{}, domain.DataUnavailablef("no prices for %s between %s and %s",
			instrument, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	}

	sort.SliceStable(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})

	// Intraday snapshots can repeat the last session's date
	deduped := series.Points[:1]
	for _, p := range series.Points[1:] {
		if p.Date.Equal(deduped[len(deduped)-1].Date) {
			deduped[len(deduped)-1] = p
			continue
		}
		deduped = append(deduped, p)
	}
	series.Points = deduped

	return series, nil
}

func usable(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}

// utcDay keeps the exchange-local calendar day of t as a UTC midnight.
func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
