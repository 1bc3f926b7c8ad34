// Package classify labels observations by the geometry of their reporting beacons.
package classify

import (
	"fmt"
	"math"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/record"
	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the default maximum distance between beacons of a coherent cluster [m]
const DefaultThreshold = 4.25

// Class is observation class
type Class int

const (
	// Discarded observations are dropped
	Discarded Class = iota
	// SemiLogical observations have only the first two beacons close together
	SemiLogical
	// Logical observations have all beacons close together
	Logical
)

// String implements fmt.Stringer
func (c Class) String() string {
	switch c {
	case Logical:
		return "logical"
	case SemiLogical:
		return "semi-logical"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Classifier classifies observations against distance threshold
type Classifier struct {
	threshold float64
}

// New creates new Classifier with the given distance threshold and returns it.
// It returns error if threshold is not a positive number.
func New(threshold float64) (*Classifier, error) {
	if !(threshold > 0) || math.IsInf(threshold, 1) {
		return nil, fmt.Errorf("invalid threshold: %v", threshold)
	}

	return &Classifier{threshold: threshold}, nil
}

// Threshold returns classifier distance threshold
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Distances returns the pairwise distances d12, d13 and d23 between anchors
func Distances(anchors [record.Blocks]rtls.Point) [3]float64 {
	p := func(i int) []float64 {
		return []float64{anchors[i].X, anchors[i].Y}
	}

	return [3]float64{
		floats.Distance(p(0), p(1), 2),
		floats.Distance(p(0), p(2), 2),
		floats.Distance(p(1), p(2), 2),
	}
}

// Classify classifies an observation reported by anchors
func (c *Classifier) Classify(anchors [record.Blocks]rtls.Point) Class {
	d := Distances(anchors)

	switch {
	case d[0] < c.threshold && d[1] < c.threshold && d[2] < c.threshold:
		return Logical
	case d[0] < c.threshold:
		return SemiLogical
	default:
		return Discarded
	}
}

// Split splits obs into logical and semi-logical observations.
// Both preserve the order of obs. Discarded observations are dropped.
func (c *Classifier) Split(obs []record.GeoObservation) (logical, semi []record.GeoObservation) {
	for _, o := range obs {
		switch c.Classify(o.Anchors) {
		case Logical:
			logical = append(logical, o)
		case SemiLogical:
			semi = append(semi, o)
		}
	}

	return logical, semi
}
