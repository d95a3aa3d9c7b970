package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func TestProjectToSimplex(t *testing.T) {
	tests := []struct {
		name     string
		input    []float64
		expected []float64
	}{
		{
			name:     "already on simplex",
			input:    []float64{0.2, 0.3, 0.5},
			expected: []float64{0.2, 0.3, 0.5},
		},
		{
			name:     "uniform shift",
			input:    []float64{1, 1},
			expected: []float64{0.5, 0.5},
		},
		{
			name:     "negative component clipped",
			input:    []float64{0.9, 0.4, -0.5},
			expected: []float64{0.75, 0.25, 0},
		},
		{
			name:     "dominant component",
			input:    []float64{5, 0, 0},
			expected: []float64{1, 0, 0},
		},
		{
			name:     "all negative",
			input:    []float64{-1, -1, -1, -1},
			expected: []float64{0.25, 0.25, 0.25, 0.25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ProjectToSimplex(tt.input)
			assert.InDeltaSlice(t, tt.expected, w, 1e-12)
			assert.InDelta(t, 1.0, floats.Sum(w), 1e-12)
			for _, v := range w {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		})
	}
}

func TestProjectToSimplexEmpty(t *testing.T) {
	assert.Empty(t, ProjectToSimplex(nil))
}

func TestNormalize(t *testing.T) {
	w := []float64{1, 3}
	assert.True(t, Normalize(w))
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, w, 1e-12)

	assert.False(t, Normalize([]float64{0, 0}))
}

func TestDistanceSquared(t *testing.T) {
	assert.InDelta(t, 25.0, DistanceSquared([]float64{0, 0}, []float64{3, 4}), 1e-12)
}
