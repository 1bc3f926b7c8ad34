package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewZero(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	for _, size := range []int{0, -10} {
		e, err := NewZero(size)
		assert.Nil(e)
		assert.Error(err)
	}
}

func TestZeroMeanCov(t *testing.T) {
	assert := assert.New(t)

	size := 2
	mean := []float64{0, 0}
	cov := mat.NewSymDense(size, []float64{0, 0, 0, 0})

	e, err := NewZero(size)
	assert.NotNil(e)
	assert.NoError(err)

	eCov := e.Cov()
	assert.Equal(cov.SymmetricDim(), eCov.SymmetricDim())
	assert.True(mat.Equal(cov, eCov))

	assert.EqualValues(mean, e.Mean())
}

func TestZeroSample(t *testing.T) {
	assert := assert.New(t)

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)

	sample1 := e.Sample()
	assert.Equal(2, sample1.Len())

	e.Reset()

	sample2 := e.Sample()
	assert.Equal(sample1, sample2)
}

func TestZeroString(t *testing.T) {
	assert := assert.New(t)

	str := `Zero{
Mean=[0 0]
Cov=⎡0  0⎤
    ⎣0  0⎦
}`

	e, err := NewZero(2)
	assert.NotNil(e)
	assert.NoError(err)
	assert.Equal(str, e.String())
}
