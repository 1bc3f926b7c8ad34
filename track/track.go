// Package track smooths a sequence of raw 2D position estimates with a linear
// Kalman filter followed by a Rauch-Tung-Striebel backward pass.
package track

import (
	"fmt"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/estimate"
	"github.com/milosgajdos/go-rtls/kalman"
	"github.com/milosgajdos/go-rtls/kalman/kf"
	"github.com/milosgajdos/go-rtls/smooth"
	"github.com/milosgajdos/go-rtls/smooth/rts"
	"gonum.org/v1/gonum/mat"
)

// Smoother smooths position trajectories.
// It holds no state between calls: every call runs its own filter pass.
type Smoother struct {
	m    rtls.DiscreteModel
	init rtls.InitCond
	q    rtls.Noise
	r    rtls.Noise
	rts  smooth.RTS
}

// New creates new Smoother and returns it.
// The model output must be the 2D position, i.e. it must have exactly 2 outputs.
// It returns error if the filter can not be created from the given parameters.
func New(m rtls.DiscreteModel, init rtls.InitCond, q, r rtls.Noise) (*Smoother, error) {
	// fail early on dimension mismatches
	if _, err := kf.New(m, init, q, r); err != nil {
		return nil, err
	}

	if _, ny := m.SystemDims(); ny != 2 {
		return nil, fmt.Errorf("invalid model output dimension: %d", ny)
	}

	s, err := rts.New(m)
	if err != nil {
		return nil, err
	}

	return &Smoother{
		m:    m,
		init: init,
		q:    q,
		r:    r,
		rts:  s,
	}, nil
}

// Filter runs the forward Kalman filter over pts.
// It returns the filtered estimates and the predicted estimates each of them was corrected from.
// The first prediction is the initial condition.
// It returns error wrapping rtls.ErrSingularCovariance if the Kalman gain can not be computed.
func (s *Smoother) Filter(pts []rtls.Point) (est, pred []rtls.Estimate, err error) {
	f, err := s.newFilter()
	if err != nil {
		return nil, nil, err
	}

	est = make([]rtls.Estimate, len(pts))
	pred = make([]rtls.Estimate, len(pts))

	var p rtls.Estimate
	for i, pt := range pts {
		if i == 0 {
			p, err = estimate.NewBaseWithCov(s.init.State(), f.PredCov())
		} else {
			p, err = f.Predict(est[i-1].Val())
		}
		if err != nil {
			return nil, nil, fmt.Errorf("prediction failed at step %d: %w", i, err)
		}

		z := mat.NewVecDense(2, []float64{pt.X, pt.Y})
		e, err := f.Update(p.Val(), z)
		if err != nil {
			return nil, nil, fmt.Errorf("update failed at step %d: %w", i, err)
		}

		pred[i] = p
		est[i] = e
	}

	return est, pred, nil
}

// Smooth smooths the trajectory pts and returns the smoothed positions.
// The returned slice is index-aligned with pts; empty pts yields empty result.
// It returns error wrapping rtls.ErrSingularCovariance if a covariance can not be inverted.
func (s *Smoother) Smooth(pts []rtls.Point) ([]rtls.Point, error) {
	if len(pts) == 0 {
		return []rtls.Point{}, nil
	}

	est, pred, err := s.Filter(pts)
	if err != nil {
		return nil, err
	}

	sx, err := s.rts.Smooth(est, pred)
	if err != nil {
		return nil, err
	}

	out := make([]rtls.Point, len(sx))
	for i, e := range sx {
		out[i] = Position(e)
	}

	return out, nil
}

// newFilter returns a filter starting from the initial condition
func (s *Smoother) newFilter() (kalman.Kalman, error) {
	return kf.New(s.m, s.init, s.q, s.r)
}

// Position returns the position stored in the first two elements of the estimate value
func Position(e rtls.Estimate) rtls.Point {
	v := e.Val()
	return rtls.Point{X: v.AtVec(0), Y: v.AtVec(1)}
}
