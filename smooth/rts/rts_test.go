package rts

import (
	"errors"
	"os"
	"testing"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/estimate"
	"github.com/milosgajdos/go-rtls/kalman/kf"
	"github.com/milosgajdos/go-rtls/model"
	"github.com/milosgajdos/go-rtls/noise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var (
	cv *model.Discrete
	ic *model.InitCond
	q  rtls.Noise
	r  rtls.Noise
)

func setup() {
	cv, _ = model.NewConstantVelocity(1.0)

	eye := mat.NewSymDense(4, nil)
	qCov := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		eye.SetSym(i, i, 1.0)
		qCov.SetSym(i, i, 0.1)
	}
	ic, _ = model.NewInitCond(mat.NewVecDense(4, nil), eye)

	q, _ = noise.NewGaussian(make([]float64, 4), qCov)
	r, _ = noise.NewGaussian(make([]float64, 2), mat.NewSymDense(2, []float64{0.1, 0, 0, 0.1}))
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

// filter runs the forward pass over zs
func filter(t *testing.T, zs [][]float64) (est, pred []rtls.Estimate) {
	f, err := kf.New(cv, ic, q, r)
	require.NoError(t, err)

	x := ic.State()
	for i, z := range zs {
		var p rtls.Estimate
		if i == 0 {
			p, err = estimate.NewBaseWithCov(x, f.PredCov())
		} else {
			p, err = f.Predict(x)
		}
		require.NoError(t, err)

		e, err := f.Update(p.Val(), mat.NewVecDense(2, z))
		require.NoError(t, err)

		pred = append(pred, p)
		est = append(est, e)
		x = e.Val()
	}

	return est, pred
}

func TestNewRTS(t *testing.T) {
	assert := assert.New(t)

	s, err := New(cv)
	assert.NotNil(s)
	assert.NoError(err)

	s, err = New(nil)
	assert.Nil(s)
	assert.Error(err)
}

func TestSmooth(t *testing.T) {
	assert := assert.New(t)

	s, err := New(cv)
	require.NoError(t, err)

	zs := [][]float64{{5, 5}, {5, 5}, {5, 5}, {5, 5}, {5, 5}}
	est, pred := filter(t, zs)

	sx, err := s.Smooth(est, pred)
	assert.NoError(err)
	assert.Len(sx, len(zs))

	// the last smoothed estimate is the last filtered estimate
	assert.True(mat.Equal(est[4].Val(), sx[4].Val()))
	assert.True(mat.Equal(est[4].Cov(), sx[4].Cov()))

	assert.InDelta(4.625986850790801, sx[0].Val().AtVec(0), 1e-9)
	assert.InDelta(4.625986850790801, sx[0].Val().AtVec(1), 1e-9)
	assert.InDelta(5.021783328492594, sx[4].Val().AtVec(0), 1e-9)

	// smoothing does not increase the uncertainty of the filtered estimates
	for i := range sx {
		assert.LessOrEqual(sx[i].Cov().At(0, 0), est[i].Cov().At(0, 0)+1e-12)
	}
}

func TestSmoothEmpty(t *testing.T) {
	assert := assert.New(t)

	s, err := New(cv)
	require.NoError(t, err)

	sx, err := s.Smooth(nil, nil)
	assert.NoError(err)
	assert.Empty(sx)

	est, pred := filter(t, [][]float64{{1, 1}, {2, 2}})
	sx, err = s.Smooth(est, pred[:1])
	assert.Nil(sx)
	assert.Error(err)
}

func TestSmoothSingular(t *testing.T) {
	assert := assert.New(t)

	s, err := New(cv)
	require.NoError(t, err)

	est, pred := filter(t, [][]float64{{1, 1}, {2, 2}})
	singular, err := estimate.NewBaseWithCov(pred[1].Val(), mat.NewSymDense(4, nil))
	require.NoError(t, err)
	pred[1] = singular

	sx, err := s.Smooth(est, pred)
	assert.Nil(sx)
	assert.True(errors.Is(err, rtls.ErrSingularCovariance))
}
