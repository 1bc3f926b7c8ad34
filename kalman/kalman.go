package kalman

import (
	rtls "github.com/milosgajdos/go-rtls"
	"gonum.org/v1/gonum/mat"
)

// Kalman is Kalman Filter
type Kalman interface {
	// rtls.Filter is dynamical system filter
	rtls.Filter
	// PredCov returns the covariance the next Update corrects
	PredCov() mat.Symmetric
}
