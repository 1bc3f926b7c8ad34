package sim

import (
	"fmt"
	"math"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrorCov returns the covariance of the position error est - truth.
// It returns error if est and truth differ in length or have fewer than two points.
func ErrorCov(est, truth []rtls.Point) (mat.Symmetric, error) {
	if len(est) != len(truth) {
		return nil, fmt.Errorf("estimate and truth mismatch: %d != %d", len(est), len(truth))
	}

	if len(est) < 2 {
		return nil, fmt.Errorf("at least 2 points required, got %d", len(est))
	}

	e := mat.NewDense(2, len(est), nil)
	for i := range est {
		e.Set(0, i, est[i].X-truth[i].X)
		e.Set(1, i, est[i].Y-truth[i].Y)
	}

	cov, err := matrix.Cov(e, "cols")
	if err != nil {
		return nil, fmt.Errorf("failed to calculate covariance matrix: %v", err)
	}

	return cov, nil
}

// RMSE returns the root mean square distance between est and truth.
// It returns error if est and truth differ in length or are empty.
func RMSE(est, truth []rtls.Point) (float64, error) {
	if len(est) != len(truth) || len(est) == 0 {
		return 0, fmt.Errorf("invalid point sets: %d, %d", len(est), len(truth))
	}

	d := make([]float64, len(est))
	for i := range est {
		d[i] = floats.Distance([]float64{est[i].X, est[i].Y}, []float64{truth[i].X, truth[i].Y}, 2)
	}

	return floats.Norm(d, 2) / math.Sqrt(float64(len(d))), nil
}
