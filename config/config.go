// Package config provides the configuration of the localization pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/milosgajdos/go-rtls/beacon"
	"github.com/milosgajdos/go-rtls/classify"
	"github.com/milosgajdos/go-rtls/model"
	"github.com/milosgajdos/go-rtls/noise"
	"github.com/milosgajdos/go-rtls/pathloss"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/track"
	"github.com/milosgajdos/go-rtls/trilat"
	"gonum.org/v1/gonum/mat"
)

// maxFileSize is the maximum size of a config file
const maxFileSize = 1 * 1024 * 1024

// symTol is the tolerance of the covariance symmetry check
const symTol = 1e-12

// Config is the localization pipeline configuration.
type Config struct {
	// Beacons is the beacon table of the deployment
	Beacons []beacon.Beacon `json:"beacons"`
	// Layout is the packed field layout
	Layout record.Layout `json:"layout"`
	// Threshold is the maximum distance between beacons of a logical observation [m]
	Threshold float64 `json:"threshold"`
	// PathLoss configures the distance estimator
	PathLoss PathLoss `json:"path_loss"`
	// Trilateration configures the position solver
	Trilateration Trilateration `json:"trilateration"`
	// Kalman configures the trajectory smoother
	Kalman Kalman `json:"kalman"`
	// Workers is the number of records processed in parallel; 0 means GOMAXPROCS
	Workers int `json:"workers"`
}

// PathLoss is log-distance path loss model configuration
type PathLoss struct {
	RefPower float64 `json:"ref_power"`
	Exponent float64 `json:"exponent"`
}

// Trilateration is trilateration solver configuration
type Trilateration struct {
	RCond float64 `json:"rcond"`
}

// Kalman is the state space model of the trajectory smoother.
// Matrices are stored row by row.
type Kalman struct {
	Transition       [][]float64 `json:"transition"`
	Observation      [][]float64 `json:"observation"`
	ProcessNoise     [][]float64 `json:"process_noise"`
	ObservationNoise [][]float64 `json:"observation_noise"`
	InitialState     []float64   `json:"initial_state"`
	InitialCov       [][]float64 `json:"initial_cov"`
}

// Default returns the configuration of the reference deployment.
func Default() *Config {
	return &Config{
		Beacons: []beacon.Beacon{
			{ID: "00000058", X: 3.0, Y: 0.0},
			{ID: "00000059", X: 0.0, Y: 3.0},
			{ID: "00000060", X: 6.0, Y: 0.0},
			{ID: "00000061", X: 3.0, Y: 3.0},
			{ID: "0000004d", X: 0.0, Y: 0.0},
			{ID: "0000004e", X: 6.0, Y: 3.0},
		},
		Layout:    record.DefaultLayout,
		Threshold: classify.DefaultThreshold,
		PathLoss: PathLoss{
			RefPower: pathloss.DefaultRefPower,
			Exponent: pathloss.DefaultExponent,
		},
		Trilateration: Trilateration{
			RCond: trilat.DefaultRCond,
		},
		Kalman: Kalman{
			Transition: [][]float64{
				{1, 0, 1, 0},
				{0, 1, 0, 1},
				{0, 0, 1, 0},
				{0, 0, 0, 1},
			},
			Observation: [][]float64{
				{1, 0, 0, 0},
				{0, 1, 0, 0},
			},
			ProcessNoise:     diag(4, 0.1),
			ObservationNoise: diag(2, 0.1),
			InitialState:     []float64{0, 0, 0, 0},
			InitialCov:       diag(4, 1.0),
		},
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Load loads the configuration from a JSON file.
// Fields omitted from the file retain their default values, so partial configs are valid.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// a beacon table in the file replaces the default table as a whole
	var fields struct {
		Beacons json.RawMessage `json:"beacons"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := Default()
	if fields.Beacons != nil {
		cfg.Beacons = nil
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if _, err := c.Registry(); err != nil {
		return err
	}

	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	if _, err := c.Classifier(); err != nil {
		return err
	}

	if _, err := c.DistanceModel(); err != nil {
		return err
	}

	if _, err := c.Solver(); err != nil {
		return err
	}

	if _, err := c.Smoother(); err != nil {
		return err
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	return nil
}

// Registry returns the beacon registry
func (c *Config) Registry() (*beacon.Registry, error) {
	reg, err := beacon.NewRegistry(c.Beacons)
	if err != nil {
		return nil, fmt.Errorf("beacons: %w", err)
	}

	return reg, nil
}

// Classifier returns the observation classifier
func (c *Config) Classifier() (*classify.Classifier, error) {
	cl, err := classify.New(c.Threshold)
	if err != nil {
		return nil, fmt.Errorf("threshold: %w", err)
	}

	return cl, nil
}

// DistanceModel returns the path loss model
func (c *Config) DistanceModel() (*pathloss.LogDistance, error) {
	l, err := pathloss.New(c.PathLoss.RefPower, c.PathLoss.Exponent)
	if err != nil {
		return nil, fmt.Errorf("path_loss: %w", err)
	}

	return l, nil
}

// Solver returns the trilateration solver
func (c *Config) Solver() (*trilat.Solver, error) {
	s, err := trilat.New(c.Trilateration.RCond)
	if err != nil {
		return nil, fmt.Errorf("trilateration: %w", err)
	}

	return s, nil
}

// Model returns the state space model of the smoother
func (c *Config) Model() (*model.Discrete, error) {
	A, err := dense(c.Kalman.Transition)
	if err != nil {
		return nil, fmt.Errorf("kalman transition: %w", err)
	}

	C, err := dense(c.Kalman.Observation)
	if err != nil {
		return nil, fmt.Errorf("kalman observation: %w", err)
	}

	m, err := model.NewDiscrete(A, C)
	if err != nil {
		return nil, fmt.Errorf("kalman: %w", err)
	}

	return m, nil
}

// Smoother returns the trajectory smoother
func (c *Config) Smoother() (*track.Smoother, error) {
	m, err := c.Model()
	if err != nil {
		return nil, err
	}

	nx, ny := m.SystemDims()

	if len(c.Kalman.InitialState) != nx {
		return nil, fmt.Errorf("kalman initial_state: length %d, want %d", len(c.Kalman.InitialState), nx)
	}

	p0, err := sym(c.Kalman.InitialCov, nx)
	if err != nil {
		return nil, fmt.Errorf("kalman initial_cov: %w", err)
	}

	init, err := model.NewInitCond(mat.NewVecDense(nx, append([]float64(nil), c.Kalman.InitialState...)), p0)
	if err != nil {
		return nil, fmt.Errorf("kalman: %w", err)
	}

	qCov, err := sym(c.Kalman.ProcessNoise, nx)
	if err != nil {
		return nil, fmt.Errorf("kalman process_noise: %w", err)
	}

	q, err := noise.FromCov(qCov)
	if err != nil {
		return nil, fmt.Errorf("kalman process_noise: %w", err)
	}

	rCov, err := sym(c.Kalman.ObservationNoise, ny)
	if err != nil {
		return nil, fmt.Errorf("kalman observation_noise: %w", err)
	}

	r, err := noise.FromCov(rCov)
	if err != nil {
		return nil, fmt.Errorf("kalman observation_noise: %w", err)
	}

	s, err := track.New(m, init, q, r)
	if err != nil {
		return nil, fmt.Errorf("kalman: %w", err)
	}

	return s, nil
}

// dense returns a matrix with the given rows
func dense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("empty matrix")
	}

	r, c := len(rows), len(rows[0])
	data := make([]float64, 0, r*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("row %d: length %d, want %d", i, len(row), c)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d: invalid value %v", i, v)
			}
		}
		data = append(data, row...)
	}

	return mat.NewDense(r, c, data), nil
}

// sym returns a symmetric n x n matrix with the given rows
func sym(rows [][]float64, n int) (*mat.SymDense, error) {
	m, err := dense(rows)
	if err != nil {
		return nil, err
	}

	r, c := m.Dims()
	if r != n || c != n {
		return nil, fmt.Errorf("dimensions [%d x %d], want [%d x %d]", r, c, n, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > symTol {
				return nil, fmt.Errorf("matrix is not symmetric at [%d, %d]", i, j)
			}
		}
	}

	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}

	return s, nil
}

func diag(n int, v float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = v
	}

	return rows
}
