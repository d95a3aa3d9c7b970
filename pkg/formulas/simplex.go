package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ProjectToSimplex returns the Euclidean projection of x onto the probability
// simplex {w : w_i >= 0, Σw = 1}.
//
// Uses the sort-based algorithm of Held, Wolfe and Crowder (also Duchi et al.):
// find the largest k such that u_k - (Σ_{j<=k} u_j - 1)/k > 0 over the values
// sorted descending, then shift and clip.
func ProjectToSimplex(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}

	u := make([]float64, n)
	copy(u, x)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	cumsum := 0.0
	theta := 0.0
	for k := 0; k < n; k++ {
		cumsum += u[k]
		t := (cumsum - 1) / float64(k+1)
		if u[k]-t > 0 {
			theta = t
		}
	}

	w := make([]float64, n)
	for i, v := range x {
		w[i] = math.Max(v-theta, 0)
	}
	return w
}

// Normalize scales w in place so it sums to 1 and reports whether that was
// possible (false when the sum is zero or not finite).
func Normalize(w []float64) bool {
	sum := floats.Sum(w)
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return false
	}
	floats.Scale(1/sum, w)
	return true
}

// DistanceSquared is Σ(a_i - b_i)².
func DistanceSquared(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
