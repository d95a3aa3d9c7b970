package formulas

import (
	"math"
)

// CalculateSharpeRatio calculates the annualized Sharpe Ratio of a return series
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Mean Return - Periodic Risk-free Rate) / Standard Deviation of Returns
//	Annualized: Sharpe × sqrt(periodsPerYear)
//
// With a zero risk-free rate this equals (periodsPerYear × mean) / sqrt(periodsPerYear × variance),
// the single-instrument case of the portfolio statistics.
//
// Returns nil if there is insufficient data or zero volatility.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	meanReturn := Mean(returns)

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)

	sharpe := (meanReturn - periodicRiskFree) / stdDev
	annualizedSharpe := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualizedSharpe
}
