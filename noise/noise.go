package noise

import (
	"fmt"

	rtls "github.com/milosgajdos/go-rtls"
	"gonum.org/v1/gonum/mat"
)

// FromCov returns zero mean noise with covariance cov.
// All-zero covariance yields Zero noise, any other covariance must be positive definite
// and yields Gaussian noise. It returns error if cov is nil, empty or indefinite.
func FromCov(cov mat.Symmetric) (rtls.Noise, error) {
	if cov == nil || cov.SymmetricDim() == 0 {
		return nil, fmt.Errorf("invalid noise covariance")
	}

	n := cov.SymmetricDim()
	if isZero(cov) {
		return NewZero(n)
	}

	g, err := NewGaussian(make([]float64, n), cov)
	if err != nil {
		return nil, fmt.Errorf("noise covariance is not positive definite: %v", err)
	}

	return g, nil
}

func isZero(cov mat.Symmetric) bool {
	n := cov.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if cov.At(i, j) != 0 {
				return false
			}
		}
	}

	return true
}
