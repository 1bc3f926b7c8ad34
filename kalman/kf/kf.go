package kf

import (
	"fmt"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/estimate"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// KF is Kalman Filter
type KF struct {
	// m is KF system model
	m rtls.DiscreteModel
	// q is state noise a.k.a. process noise
	q rtls.Noise
	// r is output noise a.k.a. measurement noise
	r rtls.Noise
	// p is the KF covariance matrix
	p *mat.SymDense
	// pNext is the KF predicted covariance matrix
	pNext *mat.SymDense
}

// New creates new KF and returns it.
// It accepts the following parameters:
//   - m:      dynamical system model
//   - init:   initial condition of the filter
//   - q:      state noise a.k.a. process noise
//   - r:      output noise a.k.a. measurement noise
//
// The initial condition covariance is used as the predicted covariance of the first Update.
// It returns error if either of the following conditions is met:
//   - invalid model is given: model dimensions must be positive integers
//   - invalid initial condition is given: its dimension must match the model state
//   - invalid state or output noise is given: noise covariance must match the model dimensions
func New(m rtls.DiscreteModel, init rtls.InitCond, q, r rtls.Noise) (*KF, error) {
	if m == nil || init == nil || q == nil || r == nil {
		return nil, fmt.Errorf("model, initial condition and noise must be set")
	}

	nx, ny := m.SystemDims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid model dimensions: [%d x %d]", nx, ny)
	}

	if init.State().Len() != nx || init.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid initial condition dimension: %d", init.State().Len())
	}

	if q.Cov().SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid state noise dimension: %d != %d", q.Cov().SymmetricDim(), nx)
	}

	if r.Cov().SymmetricDim() != ny {
		return nil, fmt.Errorf("invalid output noise dimension: %d != %d", r.Cov().SymmetricDim(), ny)
	}

	rows, cols := m.SystemMatrix().Dims()
	if rows != nx || cols != nx {
		return nil, fmt.Errorf("invalid propagation matrix dimensions: [%d x %d]", rows, cols)
	}

	rows, cols = m.OutputMatrix().Dims()
	if rows != ny || cols != nx {
		return nil, fmt.Errorf("invalid observation matrix dimensions: [%d x %d]", rows, cols)
	}

	// initialize covariance matrix to initial condition covariance
	p := mat.NewSymDense(nx, nil)
	p.CopySym(init.Cov())

	// the initial condition is the prior of the first measurement
	pNext := mat.NewSymDense(nx, nil)
	pNext.CopySym(init.Cov())

	return &KF{
		m:     m,
		q:     q,
		r:     r,
		p:     p,
		pNext: pNext,
	}, nil
}

// Predict calculates the next system state given the state x and returns its estimate.
// The returned estimate carries the predicted covariance F*P*F' + Q.
// It returns error if it fails to propagate x to the next step.
func (k *KF) Predict(x mat.Vector) (rtls.Estimate, error) {
	// propagate the mean; process noise only enters through its covariance
	xNext, err := k.m.Propagate(x, nil)
	if err != nil {
		return nil, fmt.Errorf("system state propagation failed: %v", err)
	}

	cov := &mat.Dense{}
	cov.Mul(k.m.SystemMatrix(), k.p)
	cov.Mul(cov, k.m.SystemMatrix().T())
	cov.Add(cov, k.q.Cov())

	// update KF predicted covariance matrix
	setSym(k.pNext, cov)

	return estimate.NewBaseWithCov(xNext, k.pNext)
}

// Update corrects the predicted state x using the measurement z and returns corrected estimate.
// It uses the covariance computed by the last Predict, or the initial covariance if Predict has not run yet.
// It returns error if either invalid state or measurement was supplied.
// If the innovation covariance can not be inverted it returns error which wraps rtls.ErrSingularCovariance.
func (k *KF) Update(x, z mat.Vector) (rtls.Estimate, error) {
	nx, ny := k.m.SystemDims()

	if z == nil || z.Len() != ny {
		return nil, fmt.Errorf("invalid measurement supplied: %v", z)
	}

	// observe system output in the next step
	y, err := k.m.Observe(x, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to observe system output: %v", err)
	}

	H := k.m.OutputMatrix()

	pxy := mat.NewDense(nx, ny, nil)
	pyy := mat.NewDense(ny, ny, nil)

	// P*H'
	pxy.Mul(k.pNext, H.T())

	// Note: pxy = P * H' so we reuse the result here
	// S = H*P*H' + R
	pyy.Mul(H, pxy)
	pyy.Add(pyy, k.r.Cov())

	// calculate Kalman gain
	pyyInv := &mat.Dense{}
	if err := pyyInv.Inverse(pyy); err != nil {
		return nil, fmt.Errorf("%w: innovation covariance: %v", rtls.ErrSingularCovariance, err)
	}
	gain := &mat.Dense{}
	gain.Mul(pxy, pyyInv)

	// innovation vector
	inn := &mat.VecDense{}
	inn.SubVec(z, y)

	// update state x
	corr := &mat.VecDense{}
	corr.MulVec(gain, inn)

	xCorr := &mat.VecDense{}
	xCorr.AddVec(x, corr)

	eye, err := matrix.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}

	// (I - K*H)*P
	a := &mat.Dense{}
	a.Mul(gain, H)
	a.Sub(eye, a)

	pCorr := &mat.Dense{}
	pCorr.Mul(a, k.pNext)

	// update KF covariance matrix
	setSym(k.p, pCorr)

	return estimate.NewBaseWithCov(xCorr, k.p)
}

// PredCov returns KF predicted covariance
func (k *KF) PredCov() mat.Symmetric {
	cov := mat.NewSymDense(k.pNext.SymmetricDim(), nil)
	cov.CopySym(k.pNext)

	return cov
}

// setSym copies the upper triangle of m into s
func setSym(s *mat.SymDense, m mat.Matrix) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
}
