// Package domain holds the data model of the portfolio pipeline.
package domain

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// DateLayout is the calendar date format used on every external surface.
const DateLayout = "2006-01-02"

// PricePoint is one adjusted close observation.
type PricePoint struct {
	Date  time.Time `json:"date" msgpack:"d"`
	Price float64   `json:"price" msgpack:"p"`
}

// PriceSeries is the chronologically ordered price history of one instrument.
type PriceSeries struct {
	Instrument string       `json:"instrument" msgpack:"i"`
	Points     []PricePoint `json:"points" msgpack:"pts"`
}

// Prices returns the price column.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Last returns the most recent point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// ReturnSeries holds per-period log returns, one row per period and one
// column per instrument. It is immutable after construction.
type ReturnSeries struct {
	instruments []string
	dates       []time.Time
	returns     *mat.Dense
}

// NewReturnSeries validates the shape and takes ownership of returns.
// dates holds the end date of each period.
func NewReturnSeries(instruments []string, dates []time.Time, returns *mat.Dense) (*ReturnSeries, error) {
	if len(instruments) == 0 {
		return nil, InvalidInputf("return series needs at least one instrument")
	}
	if returns == nil {
		return nil, InvalidInputf("return series has no data")
	}
	rows, cols := returns.Dims()
	if cols != len(instruments) {
		return nil, InvalidInputf("return matrix has %d columns for %d instruments", cols, len(instruments))
	}
	if len(dates) != rows {
		return nil, InvalidInputf("return matrix has %d rows for %d dates", rows, len(dates))
	}
	return &ReturnSeries{
		instruments: append([]string(nil), instruments...),
		dates:       append([]time.Time(nil), dates...),
		returns:     returns,
	}, nil
}

// Instruments returns a copy of the column labels.
func (r *ReturnSeries) Instruments() []string {
	return append([]string(nil), r.instruments...)
}

// Dates returns a copy of the period end dates.
func (r *ReturnSeries) Dates() []time.Time {
	return append([]time.Time(nil), r.dates...)
}

// Periods is the number of rows.
func (r *ReturnSeries) Periods() int {
	return len(r.dates)
}

// NumInstruments is the number of columns.
func (r *ReturnSeries) NumInstruments() int {
	return len(r.instruments)
}

// Matrix returns a copy of the returns matrix.
func (r *ReturnSeries) Matrix() *mat.Dense {
	return mat.DenseCopyOf(r.returns)
}

// Column returns a copy of one instrument's returns.
func (r *ReturnSeries) Column(j int) []float64 {
	return mat.Col(nil, j, r.returns)
}

// Statistics is the annualized (expected return, risk) pair of a portfolio.
type Statistics struct {
	ExpectedReturn float64 `json:"expected_return"`
	Risk           float64 `json:"risk"`
}

// SharpeRatio returns ExpectedReturn / Risk. A zero risk is an input error,
// never an infinite ratio.
func (s Statistics) SharpeRatio() (float64, error) {
	if s.Risk == 0 {
		return 0, InvalidInputf("sharpe ratio undefined: portfolio risk is zero")
	}
	return s.ExpectedReturn / s.Risk, nil
}

// PortfolioSample is one randomly generated portfolio.
type PortfolioSample struct {
	Weights    []float64  `json:"weights"`
	Statistics Statistics `json:"statistics"`
	Ratio      float64    `json:"ratio"`
	RatioValid bool       `json:"ratio_valid"`
}

// OptimizationResult is the max-Sharpe portfolio found by the optimizer.
type OptimizationResult struct {
	Weights         []float64  `json:"weights"`
	Statistics      Statistics `json:"statistics"`
	Ratio           float64    `json:"ratio"`
	Status          string     `json:"status"`
	Iterations      int        `json:"iterations"`
	FuncEvaluations int        `json:"func_evaluations"`
}
