// Package trilat estimates 2D positions from distances to known anchors.
package trilat

import (
	"errors"
	"fmt"
	"math"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/matrix"
	"gonum.org/v1/gonum/mat"
)

// DefaultRCond is the default reciprocal condition number below which
// the linearised system is considered degenerate.
const DefaultRCond = 1e-12

// ErrInvalidInput is returned when an anchor coordinate or distance is not finite
var ErrInvalidInput = errors.New("invalid input")

// Solution is trilateration solution
type Solution struct {
	// Point is the estimated position
	Point rtls.Point
	// Degenerate is true if the anchors did not allow a solution
	// and Point is the centroid of the anchors
	Degenerate bool
}

// Solver solves trilateration problems
type Solver struct {
	rcond float64
}

// New creates new Solver and returns it.
// Systems whose reciprocal condition number does not exceed rcond are solved by the anchor centroid.
// It returns error if rcond is not a number in [0, 1).
func New(rcond float64) (*Solver, error) {
	if !(rcond >= 0 && rcond < 1) {
		return nil, fmt.Errorf("invalid reciprocal condition number: %v", rcond)
	}

	return &Solver{rcond: rcond}, nil
}

// RCond returns the degeneracy threshold of the solver
func (s *Solver) RCond() float64 {
	return s.rcond
}

// Solve estimates the position which is at distance d[i] from anchors[i].
// The circle equation of the last anchor is subtracted from the others and
// the resulting linear system is solved in the least squares sense.
// If the system is ill-conditioned Solve returns the centroid of anchors.
// It returns error if fewer than three anchors are given, if the number of
// anchors and distances differ or if any input is not finite.
func (s *Solver) Solve(anchors []rtls.Point, d []float64) (Solution, error) {
	if len(anchors) < 3 {
		return Solution{}, fmt.Errorf("invalid number of anchors: %d", len(anchors))
	}

	if len(anchors) != len(d) {
		return Solution{}, fmt.Errorf("anchors and distances mismatch: %d != %d", len(anchors), len(d))
	}

	for i := range anchors {
		if !finite(anchors[i].X) || !finite(anchors[i].Y) || !finite(d[i]) {
			return Solution{}, fmt.Errorf("%w: anchor %d: (%v, %v) at %v", ErrInvalidInput, i, anchors[i].X, anchors[i].Y, d[i])
		}
	}

	n := len(anchors) - 1
	ref, dr := anchors[n], d[n]

	A := mat.NewDense(n, 2, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		p := anchors[i]
		A.Set(i, 0, 2*(p.X-ref.X))
		A.Set(i, 1, 2*(p.Y-ref.Y))
		b.SetVec(i, dr*dr-d[i]*d[i]-ref.X*ref.X+p.X*p.X-ref.Y*ref.Y+p.Y*p.Y)
	}

	if 1/mat.Cond(A, 2) <= s.rcond {
		return Solution{Point: centroid(anchors), Degenerate: true}, nil
	}

	x := mat.NewVecDense(2, nil)
	if err := x.SolveVec(A, b); err != nil {
		return Solution{Point: centroid(anchors), Degenerate: true}, nil
	}

	pt := rtls.Point{X: x.AtVec(0), Y: x.AtVec(1)}
	if !finite(pt.X) || !finite(pt.Y) {
		return Solution{Point: centroid(anchors), Degenerate: true}, nil
	}

	return Solution{Point: pt}, nil
}

func centroid(anchors []rtls.Point) rtls.Point {
	m := mat.NewDense(len(anchors), 2, nil)
	for i, p := range anchors {
		m.SetRow(i, []float64{p.X, p.Y})
	}

	c := matrix.ColMeans(m)

	return rtls.Point{X: c[0], Y: c[1]}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
