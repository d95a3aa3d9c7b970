package portfolio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/aristath/markowitz/pkg/formulas"
)

// ValidatePriceSeries checks the invariants every price series must satisfy:
// at least two points, strictly increasing dates and strictly positive,
// finite prices.
func ValidatePriceSeries(series domain.PriceSeries) error {
	if len(series.Points) < 2 {
		return domain.InvalidInputf("%s: need at least 2 price points, got %d", series.Instrument, len(series.Points))
	}
	for i, p := range series.Points {
		if p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return domain.InvalidInputf("%s: non-positive price %v on %s",
				series.Instrument, p.Price, p.Date.Format(domain.DateLayout))
		}
		if i > 0 && !p.Date.After(series.Points[i-1].Date) {
			return domain.InvalidInputf("%s: dates not strictly increasing at %s",
				series.Instrument, p.Date.Format(domain.DateLayout))
		}
	}
	return nil
}

// LogReturns converts one price series into log returns, dropping the
// undefined first entry. The result has len(points)-1 entries.
func LogReturns(series domain.PriceSeries) ([]float64, error) {
	if err := ValidatePriceSeries(series); err != nil {
		return nil, err
	}
	return formulas.LogReturns(series.Prices()), nil
}

// BuildReturnSeries computes the log return matrix for several instruments.
// Every series must share the exact same date axis; use marketdata.Align
// first when the raw series come from different sources.
func BuildReturnSeries(series []domain.PriceSeries) (*domain.ReturnSeries, error) {
	if len(series) == 0 {
		return nil, domain.InvalidInputf("no price series supplied")
	}

	axis := series[0].Points
	seen := make(map[string]bool, len(series))
	instruments := make([]string, len(series))
	columns := make([][]float64, len(series))

	for j, s := range series {
		if s.Instrument == "" {
			return nil, domain.InvalidInputf("price series %d has no instrument identifier", j)
		}
		if seen[s.Instrument] {
			return nil, domain.InvalidInputf("duplicate instrument %s", s.Instrument)
		}
		seen[s.Instrument] = true

		if len(s.Points) != len(axis) {
			return nil, domain.InvalidInputf("%s has %d price points, %s has %d",
				s.Instrument, len(s.Points), series[0].Instrument, len(axis))
		}
		for i := range s.Points {
			if !s.Points[i].Date.Equal(axis[i].Date) {
				return nil, domain.InvalidInputf("%s date %s does not match %s date %s",
					s.Instrument, s.Points[i].Date.Format(domain.DateLayout),
					series[0].Instrument, axis[i].Date.Format(domain.DateLayout))
			}
		}

		returns, err := LogReturns(s)
		if err != nil {
			return nil, err
		}
		instruments[j] = s.Instrument
		columns[j] = returns
	}

	periods := len(axis) - 1
	data := mat.NewDense(periods, len(series), nil)
	for j, col := range columns {
		data.SetCol(j, col)
	}

	dates := make([]time.Time, periods)
	for i := 1; i < len(axis); i++ {
		dates[i-1] = axis[i].Date
	}

	return domain.NewReturnSeries(instruments, dates, data)
}
