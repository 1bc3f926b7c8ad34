package classify

import (
	"math"
	"testing"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/stretchr/testify/assert"
)

var (
	// pairwise distances 4, 4, 4
	equilateral4 = [3]rtls.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 2, Y: 2 * math.Sqrt(3)}}
	// pairwise distances 4, 4, 5
	isosceles = [3]rtls.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 7.0 / 8.0, Y: math.Sqrt(16 - 49.0/64.0)}}
	// pairwise distances 5, 5, 5
	equilateral5 = [3]rtls.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 2.5, Y: 2.5 * math.Sqrt(3)}}
)

func TestNew(t *testing.T) {
	assert := assert.New(t)

	for _, th := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		c, err := New(th)
		assert.Nil(c)
		assert.Error(err)
	}

	c, err := New(DefaultThreshold)
	assert.NoError(err)
	assert.Equal(DefaultThreshold, c.Threshold())
}

func TestDistances(t *testing.T) {
	assert := assert.New(t)

	d := Distances(isosceles)
	assert.InDelta(4.0, d[0], 1e-12)
	assert.InDelta(4.0, d[1], 1e-12)
	assert.InDelta(5.0, d[2], 1e-12)
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	c, err := New(DefaultThreshold)
	assert.NoError(err)

	assert.Equal(Logical, c.Classify(equilateral4))
	assert.Equal(SemiLogical, c.Classify(isosceles))
	assert.Equal(Discarded, c.Classify(equilateral5))

	// the threshold is exclusive
	c, err = New(4.0)
	assert.NoError(err)
	onBoundary := [3]rtls.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 1, Y: 1}}
	assert.Equal(Discarded, c.Classify(onBoundary))
}

func TestSplit(t *testing.T) {
	assert := assert.New(t)

	c, err := New(DefaultThreshold)
	assert.NoError(err)

	geo := func(idx int, anchors [3]rtls.Point) record.GeoObservation {
		return record.GeoObservation{
			Observation: record.Observation{Index: idx},
			Anchors:     anchors,
		}
	}

	obs := []record.GeoObservation{
		geo(0, isosceles),
		geo(1, equilateral4),
		geo(2, equilateral5),
		geo(3, equilateral4),
		geo(4, isosceles),
	}

	logical, semi := c.Split(obs)
	if assert.Len(logical, 2) {
		assert.Equal(1, logical[0].Index)
		assert.Equal(3, logical[1].Index)
	}
	if assert.Len(semi, 2) {
		assert.Equal(0, semi[0].Index)
		assert.Equal(4, semi[1].Index)
	}

	logical, semi = c.Split(nil)
	assert.Empty(logical)
	assert.Empty(semi)
}

func TestClassString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("logical", Logical.String())
	assert.Equal("semi-logical", SemiLogical.String())
	assert.Equal("discarded", Discarded.String())
	assert.Equal("Class(7)", Class(7).String())
}
