// Package marketdata supplies historical price series to the portfolio
// pipeline: provider implementations, multi-instrument alignment and a
// cache-first wrapper backed by the client data database.
package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/aristath/markowitz/internal/domain"
)

// Provider returns chronologically ordered adjusted closes for one
// instrument over [start, end). Failures wrap domain.ErrDataUnavailable.
type Provider interface {
	FetchPrices(ctx context.Context, instrument string, start, end time.Time) (domain.PriceSeries, error)
}

// Named is implemented by providers that identify their data source.
// The name scopes cache keys.
type Named interface {
	Name() string
}

// Align checks that every series covers the same set of dates. A date
// present in any series but missing from another is reported as a
// *domain.GapError for the first instrument that lacks it. Series are
// returned unchanged on success.
func Align(series []domain.PriceSeries) ([]domain.PriceSeries, error) {
	if len(series) < 2 {
		return series, nil
	}

	union := make(map[time.Time]struct{})
	for _, s := range series {
		for _, p := range s.Points {
			union[dayKey(p.Date)] = struct{}{}
		}
	}

	for _, s := range series {
		have := make(map[time.Time]struct{}, len(s.Points))
		for _, p := range s.Points {
			have[dayKey(p.Date)] = struct{}{}
		}
		if len(have) == len(union) {
			continue
		}

		var missing []time.Time
		for d := range union {
			if _, ok := have[d]; !ok {
				missing = append(missing, d)
			}
		}
		sort.Slice(missing, func(i, j int) bool { return missing[i].Before(missing[j]) })
		return nil, &domain.GapError{Instrument: s.Instrument, Dates: missing}
	}

	return series, nil
}

// dayKey normalizes a timestamp to its UTC calendar day.
func dayKey(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// clip keeps the points in [start, end).
func clip(points []domain.PricePoint, start, end time.Time) []domain.PricePoint {
	out := make([]domain.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date.Before(start) || !p.Date.Before(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// clipDates keeps the dates in [start, end).
func clipDates(dates []time.Time, start, end time.Time) []time.Time {
	var out []time.Time
	for _, d := range dates {
		if d.Before(start) || !d.Before(end) {
			continue
		}
		out = append(out, d)
	}
	return out
}
