// Package formulas provides the generic numeric helpers shared by the
// portfolio models.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the default annualization factor for daily data.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation (N-1 denominator)
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance (N-1 denominator)
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedVolatility scales the standard deviation of periodic returns
// Formula: StdDev × sqrt(periodsPerYear)
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return 0
	}
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}

// LogReturns converts prices to log returns.
// Returns[i] = ln(Price[i+1] / Price[i]); the undefined first entry is dropped.
// Callers are expected to have rejected non-positive prices.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return returns
}

// Correlation calculates the Pearson correlation coefficient between two datasets
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// CovarianceMatrix returns the sample covariance of the columns of data
// scaled by factor. With fewer than two rows the result is the zero matrix.
func CovarianceMatrix(data mat.Matrix, factor float64) *mat.SymDense {
	rows, cols := data.Dims()
	cov := mat.NewSymDense(cols, nil)
	if rows < 2 {
		return cov
	}
	stat.CovarianceMatrix(cov, data, nil)
	if factor != 1 {
		cov.ScaleSym(factor, cov)
	}
	return cov
}

// ColumnMeans returns the arithmetic mean of every column of data.
func ColumnMeans(data mat.Matrix) []float64 {
	rows, cols := data.Dims()
	means := make([]float64, cols)
	if rows == 0 {
		return means
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, data)
		means[j] = stat.Mean(col, nil)
	}
	return means
}
