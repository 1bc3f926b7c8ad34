// Package pipeline localizes tags from batches of raw records.
//
// Records are parsed, classified and trilaterated in parallel. The resulting
// positions are smoothed sequentially in timestamp order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"runtime"
	"sort"

	rtls "github.com/milosgajdos/go-rtls"
	"github.com/milosgajdos/go-rtls/classify"
	"github.com/milosgajdos/go-rtls/config"
	"github.com/milosgajdos/go-rtls/pathloss"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/track"
	"github.com/milosgajdos/go-rtls/trilat"
	"golang.org/x/sync/errgroup"
)

// Position is the estimated position of a logical observation
type Position struct {
	// Observation is the source observation
	Observation record.GeoObservation
	// Distances are the estimated distances to the anchors [m]
	Distances [record.Blocks]float64
	// Raw is the trilaterated position
	Raw rtls.Point
	// Degenerate is true if Raw is the anchor centroid
	Degenerate bool
	// Smoothed is the smoothed position
	Smoothed rtls.Point
}

// Result is the result of a pipeline run
type Result struct {
	// Logical are the logical observations in timestamp order
	Logical []record.GeoObservation
	// SemiLogical are the semi-logical observations in timestamp order
	SemiLogical []record.GeoObservation
	// Positions are the located logical observations in timestamp order
	Positions []Position
	// Report summarises the run
	Report Report
}

// Pipeline is the localization pipeline
type Pipeline struct {
	parser     *record.Parser
	classifier *classify.Classifier
	distance   *pathloss.LogDistance
	solver     *trilat.Solver
	smoother   *track.Smoother
	workers    int
	logger     *log.Logger
}

// Option configures Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithWorkers sets the number of records processed in parallel
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// New creates new Pipeline from cfg and returns it.
// It returns error if cfg is invalid.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	parser, err := record.NewParser(reg, cfg.Layout)
	if err != nil {
		return nil, err
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, err
	}

	distance, err := cfg.DistanceModel()
	if err != nil {
		return nil, err
	}

	solver, err := cfg.Solver()
	if err != nil {
		return nil, err
	}

	smoother, err := cfg.Smoother()
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pipeline{
		parser:     parser,
		classifier: classifier,
		distance:   distance,
		solver:     solver,
		smoother:   smoother,
		workers:    workers,
		logger:     log.New(io.Discard, "", 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Run localizes records.
// Records are processed in timestamp order; records with equal timestamps keep their batch order.
// Records which fail to parse are dropped and reported in Result.Report.
// It returns error wrapping rtls.ErrSingularCovariance if the trajectory can not be smoothed.
func (p *Pipeline) Run(ctx context.Context, records []record.Record) (*Result, error) {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return records[order[i]].Timestamp < records[order[j]].Timestamp
	})

	geo, drops, err := p.parse(ctx, records, order)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	res.Report.Total = len(records)
	res.Report.Parsed = len(geo)

	res.Logical, res.SemiLogical = p.classifier.Split(geo)
	res.Report.Logical = len(res.Logical)
	res.Report.SemiLogical = len(res.SemiLogical)
	res.Report.Discarded = len(geo) - len(res.Logical) - len(res.SemiLogical)

	var lost []Drop
	res.Positions, lost, err = p.locate(ctx, res.Logical)
	if err != nil {
		return nil, err
	}
	res.Report.addDrops(append(drops, lost...))

	raw := make([]rtls.Point, len(res.Positions))
	for i, pos := range res.Positions {
		raw[i] = pos.Raw
		if pos.Degenerate {
			res.Report.Degenerate++
		}
	}

	smoothed, err := p.smoother.Smooth(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to smooth trajectory: %w", err)
	}

	for i := range res.Positions {
		res.Positions[i].Smoothed = smoothed[i]
	}

	for _, d := range res.Report.Drops {
		p.logger.Printf("dropped record %d (tag %q): %v", d.Index, d.TagID, d.Err)
	}
	p.logger.Printf("pipeline: %s", res.Report)

	return res, nil
}

// parse parses records in the given order.
// It returns the parsed observations in that order and the records which failed to parse.
func (p *Pipeline) parse(ctx context.Context, records []record.Record, order []int) ([]record.GeoObservation, []Drop, error) {
	geo := make([]record.GeoObservation, len(order))
	errs := make([]error, len(order))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, idx := range order {
		i, idx := i, idx
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			o, err := p.parser.Parse(records[idx])
			if err != nil {
				errs[i] = err
				return nil
			}
			o.Index = idx
			geo[i] = o

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		out   []record.GeoObservation
		drops []Drop
	)
	for i, idx := range order {
		if errs[i] != nil {
			drops = append(drops, newDrop(records[idx], idx, errs[i]))
			continue
		}
		out = append(out, geo[i])
	}

	return out, drops, nil
}

// locate trilaterates obs.
// It returns the positions in obs order and the observations which could not be located.
func (p *Pipeline) locate(ctx context.Context, obs []record.GeoObservation) ([]Position, []Drop, error) {
	pos := make([]Position, len(obs))
	errs := make([]error, len(obs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range obs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			est, err := p.Locate(obs[i])
			if err != nil {
				errs[i] = fmt.Errorf("record %d: %w", obs[i].Index, err)
				return nil
			}
			pos[i] = est

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]Position, 0, len(obs))
	var drops []Drop
	for i, o := range obs {
		if errs[i] != nil {
			drops = append(drops, locateDrop(o, errs[i]))
			continue
		}
		out = append(out, pos[i])
	}

	return out, drops, nil
}

// Locate estimates the raw position of a single observation.
// The returned position is not smoothed.
func (p *Pipeline) Locate(o record.GeoObservation) (Position, error) {
	var d [record.Blocks]float64
	for i, rd := range o.Readings {
		d[i] = p.distance.Distance(float64(rd.RSSI))
	}

	sol, err := p.solver.Solve(o.Anchors[:], d[:])
	if err != nil {
		return Position{}, err
	}

	return Position{
		Observation: o,
		Distances:   d,
		Raw:         sol.Point,
		Degenerate:  sol.Degenerate,
	}, nil
}
