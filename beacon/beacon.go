package beacon

import (
	"errors"
	"fmt"
	"math"
	"sort"

	rtls "github.com/milosgajdos/go-rtls"
)

// ErrUnknownBeacon is returned when a beacon id is not registered.
var ErrUnknownBeacon = errors.New("unknown beacon")

// Beacon is a fixed radio transmitter with known coordinates
type Beacon struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Pos returns beacon position
func (b Beacon) Pos() rtls.Point {
	return rtls.Point{X: b.X, Y: b.Y}
}

// Registry maps beacon ids to their positions.
// Registry is read-only after it has been created and safe for concurrent use.
type Registry struct {
	beacons map[string]Beacon
}

// NewRegistry creates new Registry from beacons and returns it.
// It returns error if beacons is empty, if any id is empty or duplicate
// or if any coordinate is not finite.
func NewRegistry(beacons []Beacon) (*Registry, error) {
	if len(beacons) == 0 {
		return nil, fmt.Errorf("no beacons given")
	}

	m := make(map[string]Beacon, len(beacons))
	for _, b := range beacons {
		if b.ID == "" {
			return nil, fmt.Errorf("empty beacon id")
		}

		if _, ok := m[b.ID]; ok {
			return nil, fmt.Errorf("duplicate beacon id: %q", b.ID)
		}

		if !finite(b.X) || !finite(b.Y) {
			return nil, fmt.Errorf("invalid beacon %q coordinates: (%v, %v)", b.ID, b.X, b.Y)
		}

		m[b.ID] = b
	}

	return &Registry{beacons: m}, nil
}

// Resolve returns position of beacon with the given id.
// It returns error wrapping ErrUnknownBeacon if id is not registered.
func (r *Registry) Resolve(id string) (rtls.Point, error) {
	b, ok := r.beacons[id]
	if !ok {
		return rtls.Point{}, fmt.Errorf("%w: %q", ErrUnknownBeacon, id)
	}

	return b.Pos(), nil
}

// Has returns true if beacon with the given id is registered
func (r *Registry) Has(id string) bool {
	_, ok := r.beacons[id]
	return ok
}

// Len returns the number of registered beacons
func (r *Registry) Len() int {
	return len(r.beacons)
}

// Beacons returns all registered beacons sorted by id
func (r *Registry) Beacons() []Beacon {
	out := make([]Beacon, 0, len(r.beacons))
	for _, b := range r.beacons {
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
