package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLogReturns(t *testing.T) {
	tests := []struct {
		name     string
		prices   []float64
		expected []float64
	}{
		{
			name:     "empty prices",
			prices:   []float64{},
			expected: []float64{},
		},
		{
			name:     "single price",
			prices:   []float64{100},
			expected: []float64{},
		},
		{
			name:     "doubling and halving",
			prices:   []float64{50, 100, 50},
			expected: []float64{math.Ln2, -math.Ln2},
		},
		{
			name:     "flat prices",
			prices:   []float64{10, 10, 10},
			expected: []float64{0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LogReturns(tt.prices)
			require.Len(t, result, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], result[i], 1e-12)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	tests := []struct {
		name      string
		returns   []float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "empty returns",
			returns:   []float64{},
			expected:  0.0,
			tolerance: 0.0,
		},
		{
			name:      "constant returns",
			returns:   []float64{0.01, 0.01, 0.01, 0.01},
			expected:  0.0,
			tolerance: 1e-12,
		},
		{
			name:      "alternating returns",
			returns:   []float64{0.01, -0.01, 0.01, -0.01},
			expected:  math.Sqrt(0.0004/3) * math.Sqrt(252),
			tolerance: 1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AnnualizedVolatility(tt.returns, TradingDaysPerYear)
			assert.InDelta(t, tt.expected, result, tt.tolerance)
		})
	}
}

func TestVarianceUsesSampleDenominator(t *testing.T) {
	assert.InDelta(t, 2.5, Variance([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.Equal(t, 0.0, Variance([]float64{42}))
}

func TestCovarianceMatrix(t *testing.T) {
	data := mat.NewDense(4, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
		4, 8,
	})

	cov := CovarianceMatrix(data, 1)
	assert.InDelta(t, Variance([]float64{1, 2, 3, 4}), cov.At(0, 0), 1e-12)
	assert.InDelta(t, Variance([]float64{2, 4, 6, 8}), cov.At(1, 1), 1e-12)
	assert.InDelta(t, 2*Variance([]float64{1, 2, 3, 4}), cov.At(0, 1), 1e-12)

	scaled := CovarianceMatrix(data, 252)
	assert.InDelta(t, 252*cov.At(0, 1), scaled.At(0, 1), 1e-9)
}

func TestCovarianceMatrixDegenerate(t *testing.T) {
	data := mat.NewDense(1, 3, []float64{0.1, 0.2, 0.3})

	cov := CovarianceMatrix(data, 252)
	n, _ := cov.Dims()
	require.Equal(t, 3, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, 0.0, cov.At(i, j))
		}
	}
}

func TestColumnMeans(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
	})
	assert.InDeltaSlice(t, []float64{2, 20}, ColumnMeans(data), 1e-12)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, Correlation(x, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Correlation(x, []float64{8, 6, 4, 2}), 1e-12)
	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, -0.01, 0.015}

	sharpe := CalculateSharpeRatio(returns, 0, TradingDaysPerYear)
	require.NotNil(t, sharpe)

	expected := 252 * Mean(returns) / math.Sqrt(252*Variance(returns))
	assert.InDelta(t, expected, *sharpe, 1e-12)

	assert.Nil(t, CalculateSharpeRatio([]float64{0.01}, 0, TradingDaysPerYear))
	assert.Nil(t, CalculateSharpeRatio([]float64{0.01, 0.01, 0.01}, 0, TradingDaysPerYear))
}
