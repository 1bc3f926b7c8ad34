package model

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var (
	x, q, r *mat.VecDense
	A, C    *mat.Dense
)

func setup() {
	x = mat.NewVecDense(4, []float64{1.0, 2.0, 0.5, -0.5})

	// state and output noise
	q = mat.NewVecDense(4, []float64{0.1, 0.1, 0.1, 0.1})
	r = mat.NewVecDense(2, []float64{-0.2, 0.2})

	A = mat.NewDense(4, 4, []float64{
		1, 0, 1, 0,
		0, 1, 0, 1,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	C = mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
	})
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func TestInitCond(t *testing.T) {
	assert := assert.New(t)

	state := mat.NewVecDense(2, []float64{1.0, 3.0})
	cov := mat.NewSymDense(2, []float64{0.25, 0, 0, 0.25})

	ic, err := NewInitCond(state, cov)
	assert.NoError(err)

	assert.True(mat.Equal(state, ic.State()))
	assert.True(mat.Equal(cov, ic.Cov()))

	ic, err = NewInitCond(state, mat.NewSymDense(3, nil))
	assert.Nil(ic)
	assert.Error(err)
}

func TestNewDiscrete(t *testing.T) {
	assert := assert.New(t)

	f, err := NewDiscrete(A, C)
	assert.NotNil(f)
	assert.NoError(err)

	nx, ny := f.SystemDims()
	assert.Equal(4, nx)
	assert.Equal(2, ny)

	f, err = NewDiscrete(nil, C)
	assert.Nil(f)
	assert.Error(err)

	f, err = NewDiscrete(mat.NewDense(4, 3, nil), C)
	assert.Nil(f)
	assert.Error(err)

	f, err = NewDiscrete(A, mat.NewDense(2, 3, nil))
	assert.Nil(f)
	assert.Error(err)
}

func TestConstantVelocity(t *testing.T) {
	assert := assert.New(t)

	f, err := NewConstantVelocity(1.0)
	assert.NoError(err)
	assert.True(mat.Equal(A, f.SystemMatrix()))
	assert.True(mat.Equal(C, f.OutputMatrix()))

	f, err = NewConstantVelocity(0)
	assert.Nil(f)
	assert.Error(err)
}

func TestDiscretePropagate(t *testing.T) {
	assert := assert.New(t)

	f, err := NewDiscrete(A, C)
	assert.NoError(err)

	v, err := f.Propagate(x, nil)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1.5, 1.5, 0.5, -0.5}, mat.Col(nil, 0, v), 1e-12)

	v, err = f.Propagate(x, q)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1.6, 1.6, 0.6, -0.4}, mat.Col(nil, 0, v), 1e-12)

	_x := mat.NewVecDense(10, nil)
	v, err = f.Propagate(_x, q)
	assert.Nil(v)
	assert.Error(err)
}

func TestDiscreteObserve(t *testing.T) {
	assert := assert.New(t)

	f, err := NewDiscrete(A, C)
	assert.NoError(err)

	v, err := f.Observe(x, nil)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{1.0, 2.0}, mat.Col(nil, 0, v), 1e-12)

	v, err = f.Observe(x, r)
	assert.NoError(err)
	assert.InDeltaSlice([]float64{0.8, 2.2}, mat.Col(nil, 0, v), 1e-12)

	_x := mat.NewVecDense(10, nil)
	v, err = f.Observe(_x, r)
	assert.Nil(v)
	assert.Error(err)
}

func TestSystemMatricesCopy(t *testing.T) {
	assert := assert.New(t)

	f, err := NewDiscrete(A, C)
	assert.NoError(err)

	m := f.SystemMatrix().(*mat.Dense)
	m.Set(0, 0, 100)
	assert.Equal(1.0, f.SystemMatrix().At(0, 0))
}
