package rts

import (
	"fmt"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/estimate"
	"gonum.org/v1/gonum/mat"
)

// RTS is Rauch-Tung-Striebel smoother
type RTS struct {
	// m is system model
	m rtls.DiscreteModel
}

// New creates new RTS and returns it.
// It returns error if it fails to create RTS smoother.
func New(m rtls.DiscreteModel) (*RTS, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}

	nx, ny := m.SystemDims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid model dimensions: [%d x %d]", nx, ny)
	}

	return &RTS{
		m: m,
	}, nil
}

// Smooth implements Rauch-Tung-Striebel smoothing algorithm.
// est are the filtered estimates and pred the predicted estimates the filter corrected into est:
// pred[i] carries the covariance predicted for step i before its measurement update.
// It returns error if est and pred have different lengths or if a predicted covariance
// can not be inverted, in which case the error wraps rtls.ErrSingularCovariance.
func (s *RTS) Smooth(est, pred []rtls.Estimate) ([]rtls.Estimate, error) {
	if len(est) != len(pred) {
		return nil, fmt.Errorf("invalid estimates size: %d != %d", len(est), len(pred))
	}

	n := len(est)
	sx := make([]rtls.Estimate, n)
	if n == 0 {
		return sx, nil
	}

	F := s.m.SystemMatrix()
	nx, _ := s.m.SystemDims()

	// the last filtered estimate already uses all measurements
	e, err := estimate.NewBaseWithCov(est[n-1].Val(), est[n-1].Cov())
	if err != nil {
		return nil, err
	}
	sx[n-1] = e

	for i := n - 2; i >= 0; i-- {
		xk := est[i].Val()
		pk := est[i].Cov()
		pk1 := pred[i+1].Cov()

		// F*x_k
		xk1 := &mat.VecDense{}
		xk1.MulVec(F, xk)

		// P_(k+1)^-1 inverse
		pinv := &mat.Dense{}
		if err := pinv.Inverse(pk1); err != nil {
			return nil, fmt.Errorf("%w: predicted covariance at step %d: %v", rtls.ErrSingularCovariance, i+1, err)
		}

		// calculate smoothing matrix: Pk*F'*P_(k+1)^-1
		c := &mat.Dense{}
		c.Mul(pk, F.T())
		c.Mul(c, pinv)

		// smooth the state: xk + Ck*(xs_(k+1) - F*xk)
		diff := &mat.VecDense{}
		diff.SubVec(e.Val(), xk1)
		x := &mat.VecDense{}
		x.MulVec(c, diff)
		x.AddVec(xk, x)

		// smooth covariance: Pk + Ck*(Ps_(k+1) - P_(k+1))*Ck'
		cov := &mat.Dense{}
		cov.Sub(e.Cov(), pk1)
		cov.Mul(c, cov)
		cov.Mul(cov, c.T())
		cov.Add(pk, cov)

		pSmooth := mat.NewSymDense(nx, nil)
		for r := 0; r < nx; r++ {
			for j := r; j < nx; j++ {
				pSmooth.SetSym(r, j, cov.At(r, j))
			}
		}

		e, err = estimate.NewBaseWithCov(x, pSmooth)
		if err != nil {
			return nil, err
		}
		sx[i] = e
	}

	return sx, nil
}
