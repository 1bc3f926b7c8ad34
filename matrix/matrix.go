package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// ColSums returns a slice containing m column sums.
// It panics if m is nil.
func ColSums(m *mat.Dense) []float64 {
	_, cols := m.Dims()
	sum := make([]float64, cols)

	for i := 0; i < cols; i++ {
		sum[i] = mat.Sum(m.ColView(i))
	}

	return sum
}

// ColMeans returns a slice containing m column means.
// It panics if m is nil.
func ColMeans(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	means := ColSums(m)

	for i := range means {
		means[i] /= float64(rows)
	}

	return means
}
