// Package sim simulates a tag walking among beacons and the records it reports.
package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/beacon"
	"github.com/milosgajdos/go-rtls/model"
	"github.com/milosgajdos/go-rtls/noise"
	"github.com/milosgajdos/go-rtls/pathloss"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/rnd"
	"gonum.org/v1/gonum/mat"
)

// minDistance is the smallest beacon distance used to compute the signal strength [m]
const minDistance = 0.1

// Config configures the simulation
type Config struct {
	// Steps is the number of simulated records
	Steps int
	// Start is the initial tag position
	Start rtls.Point
	// Velocity is the initial tag velocity [m/step]
	Velocity rtls.Point
	// ProcessNoise is the variance of the tag state noise
	ProcessNoise float64
	// RSSINoise is the variance of the signal strength noise [dB^2]
	RSSINoise float64
	// RSSICorr is the correlation of the signal strength noise between beacons
	RSSICorr float64
	// TagID identifies the simulated tag
	TagID string
	// StartTime is the timestamp of the first record
	StartTime int64
	// Interval is the timestamp increment between records
	Interval int64
	// Seed seeds the simulation; zero seeds from the clock
	Seed uint64
}

// DefaultConfig returns default simulation config
func DefaultConfig() Config {
	return Config{
		Steps:        100,
		Start:        rtls.Point{X: 1, Y: 1},
		Velocity:     rtls.Point{X: 0.05, Y: 0.02},
		ProcessNoise: 1e-4,
		RSSINoise:    4,
		RSSICorr:     0.3,
		TagID:        "sim-puck",
		StartTime:    0,
		Interval:     1000,
	}
}

// Sample is a simulated record together with the true tag position
type Sample struct {
	Truth  rtls.Point
	Record record.Record
}

// Sim simulates tag walks
type Sim struct {
	beacons []beacon.Beacon
	pl      *pathloss.LogDistance
	layout  record.Layout
	cfg     Config
	model   *model.Discrete
	min     rtls.Point
	max     rtls.Point
}

// New creates new Sim and returns it.
// The tag walks inside the bounding box of beacons and reports the three nearest beacons.
// It returns error if fewer than three beacons are given or if cfg is invalid.
func New(beacons []beacon.Beacon, pl *pathloss.LogDistance, layout record.Layout, cfg Config) (*Sim, error) {
	if len(beacons) < record.Blocks {
		return nil, fmt.Errorf("at least %d beacons required, got %d", record.Blocks, len(beacons))
	}

	if pl == nil {
		return nil, fmt.Errorf("missing path loss model")
	}

	if err := layout.Validate(); err != nil {
		return nil, err
	}

	if cfg.Steps <= 0 {
		return nil, fmt.Errorf("invalid number of steps: %d", cfg.Steps)
	}

	if !(cfg.ProcessNoise > 0) || !(cfg.RSSINoise > 0) {
		return nil, fmt.Errorf("noise variances must be positive")
	}

	if cfg.RSSICorr < 0 || cfg.RSSICorr >= 1 {
		return nil, fmt.Errorf("invalid rssi correlation: %v", cfg.RSSICorr)
	}

	m, err := model.NewConstantVelocity(1.0)
	if err != nil {
		return nil, err
	}

	lo := rtls.Point{X: math.Inf(1), Y: math.Inf(1)}
	hi := rtls.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, b := range beacons {
		lo.X, lo.Y = math.Min(lo.X, b.X), math.Min(lo.Y, b.Y)
		hi.X, hi.Y = math.Max(hi.X, b.X), math.Max(hi.Y, b.Y)
	}

	bs := make([]beacon.Beacon, len(beacons))
	copy(bs, beacons)

	return &Sim{
		beacons: bs,
		pl:      pl,
		layout:  layout,
		cfg:     cfg,
		model:   m,
		min:     lo,
		max:     hi,
	}, nil
}

// Run runs the simulation and returns the simulated samples
func (s *Sim) Run() ([]Sample, error) {
	seed := s.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	q, err := noise.NewGaussianWithSeed(make([]float64, 4), diag(4, s.cfg.ProcessNoise), seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create process noise: %w", err)
	}

	r := rand.New(rand.NewSource(int64(seed)))
	rssiNoise, err := rnd.WithCovNFrom(r, s.rssiCov(), s.cfg.Steps)
	if err != nil {
		return nil, fmt.Errorf("failed to draw rssi noise: %w", err)
	}

	var x mat.Vector = mat.NewVecDense(4, []float64{s.cfg.Start.X, s.cfg.Start.Y, s.cfg.Velocity.X, s.cfg.Velocity.Y})

	samples := make([]Sample, s.cfg.Steps)
	for i := range samples {
		if i > 0 {
			x, err = s.model.Propagate(x, q.Sample())
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i, err)
			}
			x = s.bounce(x)
		}

		y, err := s.model.Observe(x, nil)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		truth := rtls.Point{X: y.AtVec(0), Y: y.AtVec(1)}

		var readings [record.Blocks]record.Reading
		for b, bc := range s.nearest(truth) {
			d := math.Max(math.Hypot(bc.X-truth.X, bc.Y-truth.Y), minDistance)
			rssi := math.Round(s.pl.RSSI(d) + rssiNoise.At(b, i))
			readings[b] = record.Reading{BeaconID: bc.ID, RSSI: clampRSSI(rssi, s.layout.RSSIWidth)}
		}

		field, err := record.Encode(s.layout, readings)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		samples[i] = Sample{
			Truth: truth,
			Record: record.Record{
				Timestamp:  s.cfg.StartTime + int64(i)*s.cfg.Interval,
				Nearest:    field,
				InstanceID: s.cfg.TagID,
			},
		}
	}

	return samples, nil
}

// Records returns the records of samples
func Records(samples []Sample) []record.Record {
	records := make([]record.Record, len(samples))
	for i, s := range samples {
		records[i] = s.Record
	}

	return records
}

// nearest returns the beacons closest to p ordered by distance
func (s *Sim) nearest(p rtls.Point) []beacon.Beacon {
	bs := make([]beacon.Beacon, len(s.beacons))
	copy(bs, s.beacons)

	sort.SliceStable(bs, func(i, j int) bool {
		return math.Hypot(bs[i].X-p.X, bs[i].Y-p.Y) < math.Hypot(bs[j].X-p.X, bs[j].Y-p.Y)
	})

	return bs[:record.Blocks]
}

// bounce reflects the state off the beacon bounding box
func (s *Sim) bounce(x mat.Vector) mat.Vector {
	v := mat.VecDenseCopyOf(x)

	reflect := func(pos, vel int, lo, hi float64) {
		if hi <= lo {
			v.SetVec(pos, lo)
			return
		}
		for v.AtVec(pos) < lo || v.AtVec(pos) > hi {
			if v.AtVec(pos) < lo {
				v.SetVec(pos, 2*lo-v.AtVec(pos))
			} else {
				v.SetVec(pos, 2*hi-v.AtVec(pos))
			}
			v.SetVec(vel, -v.AtVec(vel))
		}
	}

	reflect(0, 2, s.min.X, s.max.X)
	reflect(1, 3, s.min.Y, s.max.Y)

	return v
}

func (s *Sim) rssiCov() *mat.SymDense {
	cov := mat.NewSymDense(record.Blocks, nil)
	for i := 0; i < record.Blocks; i++ {
		for j := i; j < record.Blocks; j++ {
			v := s.cfg.RSSINoise
			if i != j {
				v *= s.cfg.RSSICorr
			}
			cov.SetSym(i, j, v)
		}
	}

	return cov
}

// clampRSSI clamps rssi to non-positive values whose magnitude fits width digits
func clampRSSI(rssi float64, width int) int {
	lo := -(math.Pow(10, float64(width)) - 1)

	return int(math.Max(lo, math.Min(0, rssi)))
}

func diag(n int, v float64) *mat.SymDense {
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, v)
	}

	return cov
}
