package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"testing"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/config"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/trilat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triples of default beacons
var (
	logical     = [3]string{"0000004d", "00000058", "00000061"}
	semiLogical = [3]string{"0000004d", "00000058", "0000004e"}
	discarded   = [3]string{"0000004d", "00000060", "00000061"}
)

func newRecord(t *testing.T, ts int64, ids [3]string, rssi [3]int) record.Record {
	t.Helper()

	var readings [record.Blocks]record.Reading
	for i := range readings {
		readings[i] = record.Reading{BeaconID: ids[i], RSSI: rssi[i]}
	}

	field, err := record.Encode(record.DefaultLayout, readings)
	require.NoError(t, err)

	return record.Record{Timestamp: ts, Nearest: field, InstanceID: "puck-1"}
}

func newPipeline(t *testing.T, cfg *config.Config, opts ...Option) *Pipeline {
	t.Helper()

	p, err := New(cfg, opts...)
	require.NoError(t, err)

	return p
}

func TestNew(t *testing.T) {
	assert := assert.New(t)

	p, err := New(nil)
	assert.Nil(p)
	assert.Error(err)

	cfg := config.Default()
	cfg.Threshold = -1
	p, err = New(cfg)
	assert.Nil(p)
	assert.Error(err)

	p, err = New(config.Default(), WithWorkers(2), WithLogger(nil))
	assert.NotNil(p)
	assert.NoError(err)
	assert.Equal(2, p.workers)
}

func TestRunSingleRecord(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Default()
	p := newPipeline(t, cfg)

	rec := newRecord(t, 1, logical, [3]int{-65, -70, -68})

	res, err := p.Run(context.Background(), []record.Record{rec})
	require.NoError(t, err)
	require.Len(t, res.Positions, 1)

	// the same inputs solved directly
	reg, err := cfg.Registry()
	require.NoError(t, err)
	dist, err := cfg.DistanceModel()
	require.NoError(t, err)
	solver, err := cfg.Solver()
	require.NoError(t, err)
	smoother, err := cfg.Smoother()
	require.NoError(t, err)

	anchors := make([]rtls.Point, 3)
	d := make([]float64, 3)
	for i, id := range logical {
		anchors[i], err = reg.Resolve(id)
		require.NoError(t, err)
	}
	for i, rssi := range []float64{-65, -70, -68} {
		d[i] = dist.Distance(rssi)
	}

	sol, err := solver.Solve(anchors, d)
	require.NoError(t, err)
	assert.False(sol.Degenerate)

	exp, err := smoother.Smooth([]rtls.Point{sol.Point})
	require.NoError(t, err)

	pos := res.Positions[0]
	assert.InDelta(sol.Point.X, pos.Raw.X, 1e-12)
	assert.InDelta(sol.Point.Y, pos.Raw.Y, 1e-12)
	assert.InDelta(exp[0].X, pos.Smoothed.X, 1e-12)
	assert.InDelta(exp[0].Y, pos.Smoothed.Y, 1e-12)

	assert.Equal(1, res.Report.Total)
	assert.Equal(1, res.Report.Parsed)
	assert.Equal(1, res.Report.Logical)
	assert.Equal(0, res.Report.Dropped)
}

func TestRunUnknownBeacon(t *testing.T) {
	assert := assert.New(t)

	p := newPipeline(t, config.Default())

	unknown := logical
	unknown[1] = "deadbeef"

	records := []record.Record{
		newRecord(t, 1, logical, [3]int{-65, -70, -68}),
		newRecord(t, 2, unknown, [3]int{-65, -70, -68}),
		newRecord(t, 3, logical, [3]int{-66, -69, -70}),
	}

	res, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(3, res.Report.Total)
	assert.Equal(2, res.Report.Parsed)
	assert.Equal(1, res.Report.Dropped)
	assert.Equal(map[string]int{ReasonUnknownBeacon: 1}, res.Report.Reasons)
	if assert.Len(res.Report.Drops, 1) {
		assert.Equal(1, res.Report.Drops[0].Index)
		assert.Equal(int64(2), res.Report.Drops[0].Timestamp)
	}

	// the other records are unaffected
	alone, err := p.Run(context.Background(), []record.Record{records[0], records[2]})
	require.NoError(t, err)
	require.Len(t, res.Positions, 2)
	require.Len(t, alone.Positions, 2)
	for i := range alone.Positions {
		assert.Equal(alone.Positions[i].Raw, res.Positions[i].Raw)
		assert.Equal(alone.Positions[i].Smoothed, res.Positions[i].Smoothed)
	}
}

func TestRunClassification(t *testing.T) {
	assert := assert.New(t)

	p := newPipeline(t, config.Default(), WithWorkers(3))

	records := []record.Record{
		newRecord(t, 40, logical, [3]int{-65, -70, -68}),
		newRecord(t, 10, semiLogical, [3]int{-65, -70, -68}),
		newRecord(t, 30, discarded, [3]int{-65, -70, -68}),
		newRecord(t, 20, logical, [3]int{-66, -69, -70}),
		{Timestamp: 5, Nearest: "garbage", InstanceID: "puck-2"},
		newRecord(t, 20, logical, [3]int{-67, -67, -67}),
	}

	res, err := p.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(6, res.Report.Total)
	assert.Equal(5, res.Report.Parsed)
	assert.Equal(3, res.Report.Logical)
	assert.Equal(1, res.Report.SemiLogical)
	assert.Equal(1, res.Report.Discarded)
	assert.Equal(map[string]int{ReasonShortField: 1}, res.Report.Reasons)

	// timestamp order, ties keep batch order
	var idx []int
	for _, o := range res.Logical {
		idx = append(idx, o.Index)
	}
	assert.Equal([]int{3, 5, 0}, idx)

	if assert.Len(res.SemiLogical, 1) {
		assert.Equal(1, res.SemiLogical[0].Index)
	}

	require.Len(t, res.Positions, 3)
	for i, pos := range res.Positions {
		assert.Equal(res.Logical[i].Index, pos.Observation.Index)
	}
}

func TestRunInvalidDistance(t *testing.T) {
	assert := assert.New(t)

	// a wide rssi window holds magnitudes whose distance overflows
	cfg := config.Default()
	cfg.Layout = record.Layout{Stride: 37, IDOffset: 0, IDWidth: 8, RSSIOffset: 10, RSSIWidth: 20}
	p := newPipeline(t, cfg)

	encode := func(ts int64, rssi [3]int) record.Record {
		var readings [record.Blocks]record.Reading
		for i := range readings {
			readings[i] = record.Reading{BeaconID: logical[i], RSSI: rssi[i]}
		}
		field, err := record.Encode(cfg.Layout, readings)
		require.NoError(t, err)

		return record.Record{Timestamp: ts, Nearest: field, InstanceID: "puck-1"}
	}

	good := encode(1, [3]int{-65, -70, -68})
	bad := encode(2, [3]int{-9999999, -70, -68})

	res, err := p.Run(context.Background(), []record.Record{good, bad})
	require.NoError(t, err)

	assert.Equal(2, res.Report.Total)
	assert.Equal(2, res.Report.Parsed)
	assert.Equal(2, res.Report.Logical)
	assert.Equal(1, res.Report.Dropped)
	assert.Equal(map[string]int{ReasonInvalidDistance: 1}, res.Report.Reasons)

	if assert.Len(res.Report.Drops, 1) {
		d := res.Report.Drops[0]
		assert.Equal(1, d.Index)
		assert.Equal(int64(2), d.Timestamp)
		assert.Equal("puck-1", d.TagID)
		assert.True(errors.Is(d.Err, trilat.ErrInvalidInput))
	}

	// the good record is still located
	require.Len(t, res.Positions, 1)
	pos := res.Positions[0]
	assert.Equal(0, pos.Observation.Index)

	exp, err := p.Locate(res.Logical[0])
	require.NoError(t, err)
	assert.InDelta(exp.Raw.X, pos.Raw.X, 1e-12)
	assert.InDelta(exp.Raw.Y, pos.Raw.Y, 1e-12)
	assert.False(math.IsNaN(pos.Smoothed.X))
}

func TestRunDegenerate(t *testing.T) {
	assert := assert.New(t)

	p := newPipeline(t, config.Default())

	rec := newRecord(t, 1, [3]string{"0000004d", "0000004d", "00000058"}, [3]int{-65, -65, -70})

	res, err := p.Run(context.Background(), []record.Record{rec})
	require.NoError(t, err)

	assert.Equal(1, res.Report.Degenerate)
	if assert.Len(res.Positions, 1) {
		assert.True(res.Positions[0].Degenerate)
		assert.Equal(rtls.Point{X: 1, Y: 0}, res.Positions[0].Raw)
	}
}

func TestRunEmpty(t *testing.T) {
	assert := assert.New(t)

	p := newPipeline(t, config.Default())

	res, err := p.Run(context.Background(), nil)
	assert.NoError(err)
	assert.Empty(res.Positions)
	assert.Equal(0, res.Report.Total)

	// nothing logical survives classification
	res, err = p.Run(context.Background(), []record.Record{
		newRecord(t, 1, discarded, [3]int{-65, -70, -68}),
	})
	assert.NoError(err)
	assert.Empty(res.Positions)
	assert.Equal(1, res.Report.Discarded)
}

func TestRunSingularCovariance(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Default()
	cfg.Kalman.InitialCov = [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	cfg.Kalman.ProcessNoise = [][]float64{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}}
	cfg.Kalman.ObservationNoise = [][]float64{{0, 0}, {0, 0}}

	p := newPipeline(t, cfg)

	res, err := p.Run(context.Background(), []record.Record{
		newRecord(t, 1, logical, [3]int{-65, -70, -68}),
	})
	assert.Nil(res)
	assert.True(errors.Is(err, rtls.ErrSingularCovariance))
}

func TestRunCanceled(t *testing.T) {
	assert := assert.New(t)

	p := newPipeline(t, config.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Run(ctx, []record.Record{newRecord(t, 1, logical, [3]int{-65, -70, -68})})
	assert.Nil(res)
	assert.True(errors.Is(err, context.Canceled))
}

func TestRunLogger(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	p := newPipeline(t, config.Default(), WithLogger(log.New(&buf, "", 0)))

	_, err := p.Run(context.Background(), []record.Record{
		{Timestamp: 1, Nearest: "garbage", InstanceID: "puck-2"},
	})
	assert.NoError(err)
	assert.Contains(buf.String(), "dropped record 0")
	assert.Contains(buf.String(), "dropped=1")
}
