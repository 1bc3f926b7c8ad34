package model

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// InitCond implements rtls.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it.
// It returns error if the dimensions of state and cov do not match.
func NewInitCond(state mat.Vector, cov mat.Symmetric) (*InitCond, error) {
	if state == nil || cov == nil || state.Len() != cov.SymmetricDim() {
		return nil, fmt.Errorf("invalid initial condition dimensions")
	}

	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}, nil
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := &mat.VecDense{}
	state.CloneFromVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}

// Discrete is a linear, discrete-time, dynamical system without control input.
//
//	x[n+1] = A*x[n] + q[n]
//	y[n]   = C*x[n] + r[n]
type Discrete struct {
	// A is internal state matrix
	A *mat.Dense
	// C is output state matrix
	C *mat.Dense
}

// NewDiscrete creates a linear discrete-time model and returns it.
// It returns error if A is not square or if the columns of C do not match the state dimension.
func NewDiscrete(A, C *mat.Dense) (*Discrete, error) {
	if A == nil || C == nil {
		return nil, fmt.Errorf("system and output matrices must be defined for a model")
	}

	ra, ca := A.Dims()
	if ra == 0 || ra != ca {
		return nil, fmt.Errorf("invalid system matrix dimensions: [%d x %d]", ra, ca)
	}

	rc, cc := C.Dims()
	if rc == 0 || cc != ra {
		return nil, fmt.Errorf("invalid output matrix dimensions: [%d x %d]", rc, cc)
	}

	return &Discrete{A: mat.DenseCopyOf(A), C: mat.DenseCopyOf(C)}, nil
}

// NewConstantVelocity creates a 2D constant velocity model with state (x, y, vx, vy)
// advanced by timestep dt. Only the position (x, y) is observed.
func NewConstantVelocity(dt float64) (*Discrete, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("invalid timestep: %f", dt)
	}

	A, err := matrix.NewDenseValIdentity(4, 1.0)
	if err != nil {
		return nil, err
	}
	A.Set(0, 2, dt)
	A.Set(1, 3, dt)

	C := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})

	return NewDiscrete(A, C)
}

// Propagate propagates internal state x to the next step.
// q is added to the propagated state as process noise when its length matches the state.
func (d *Discrete) Propagate(x, q mat.Vector) (mat.Vector, error) {
	nx, _ := d.SystemDims()
	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := new(mat.VecDense)
	out.MulVec(d.A, x)

	if q != nil && q.Len() == nx {
		out.AddVec(out, q)
	}

	return out, nil
}

// Observe observes external state of the system given internal state x.
// r is added to the output as measurement noise when its length matches the output.
func (d *Discrete) Observe(x, r mat.Vector) (mat.Vector, error) {
	nx, ny := d.SystemDims()
	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector")
	}

	out := new(mat.VecDense)
	out.MulVec(d.C, x)

	if r != nil && r.Len() == ny {
		out.AddVec(out, r)
	}

	return out, nil
}

// SystemDims returns internal state length (nx) and output vector length (ny).
func (d *Discrete) SystemDims() (nx, ny int) {
	nx, _ = d.A.Dims()
	ny, _ = d.C.Dims()

	return nx, ny
}

// SystemMatrix returns state propagation matrix
func (d *Discrete) SystemMatrix() mat.Matrix {
	m := &mat.Dense{}
	m.CloneFrom(d.A)

	return m
}

// OutputMatrix returns observation matrix
func (d *Discrete) OutputMatrix() mat.Matrix {
	m := &mat.Dense{}
	m.CloneFrom(d.C)

	return m
}
