// Package pathloss converts received signal strength to distance.
package pathloss

import (
	"fmt"
	"math"
)

const (
	// DefaultRefPower is the RSSI measured 1m away from a beacon [dBm]
	DefaultRefPower = -60.0
	// DefaultExponent is the free space path loss exponent
	DefaultExponent = 2.0
)

// LogDistance is log-distance path loss model:
//
//	d = 10^((A - rssi) / (10 * n))
type LogDistance struct {
	// A is the reference power at 1m [dBm]
	A float64
	// N is the path loss exponent
	N float64
}

// New creates new LogDistance model with reference power a and exponent n.
// It returns error if a is not finite or if n is not a positive number.
func New(a, n float64) (*LogDistance, error) {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return nil, fmt.Errorf("invalid reference power: %v", a)
	}

	if !(n > 0) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("invalid path loss exponent: %v", n)
	}

	return &LogDistance{A: a, N: n}, nil
}

// Distance returns the distance [m] estimated from rssi [dBm].
func (l *LogDistance) Distance(rssi float64) float64 {
	return math.Pow(10, (l.A-rssi)/(10*l.N))
}

// RSSI returns the rssi [dBm] expected at distance d [m]. It is the inverse of Distance.
func (l *LogDistance) RSSI(d float64) float64 {
	return l.A - 10*l.N*math.Log10(d)
}
