package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/milosgajdos/go-rtls/beacon"
)

var (
	// ErrShortField is returned when the packed field is too short for a block
	ErrShortField = errors.New("packed field too short")
	// ErrEmptyField is returned when a beacon id or signal strength is empty
	ErrEmptyField = errors.New("empty field")
	// ErrInvalidRSSI is returned when signal strength is not a number
	ErrInvalidRSSI = errors.New("invalid rssi")
)

// ParseError is a failure to parse a single record
type ParseError struct {
	// Block is the beacon block which failed to parse
	Block int
	// Field is the name of the field which failed to parse
	Field string
	// Err is the underlying error
	Err error
}

// Error implements error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("block %d %s: %v", e.Block, e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser parses raw records into observations
type Parser struct {
	reg    *beacon.Registry
	layout Layout
}

// NewParser creates new Parser which resolves beacon ids in reg and decodes packed fields using layout.
// It returns error if reg is nil or layout is invalid.
func NewParser(reg *beacon.Registry, layout Layout) (*Parser, error) {
	if reg == nil {
		return nil, fmt.Errorf("invalid beacon registry")
	}

	if err := layout.Validate(); err != nil {
		return nil, err
	}

	return &Parser{
		reg:    reg,
		layout: layout,
	}, nil
}

// Decode decodes the packed field of r into an observation.
// Beacon ids are not resolved. Decode returns *ParseError if any block is malformed.
func (p *Parser) Decode(r Record) (Observation, error) {
	obs := Observation{
		Timestamp: r.Timestamp,
		TagID:     r.InstanceID,
	}

	for b := 0; b < Blocks; b++ {
		start, end := p.layout.id(b)
		if end > len(r.Nearest) {
			return Observation{}, &ParseError{Block: b, Field: "id", Err: ErrShortField}
		}

		id := strings.TrimSpace(r.Nearest[start:end])
		if id == "" {
			return Observation{}, &ParseError{Block: b, Field: "id", Err: ErrEmptyField}
		}

		start, end = p.layout.rssi(b)
		if end > len(r.Nearest) {
			return Observation{}, &ParseError{Block: b, Field: "rssi", Err: ErrShortField}
		}

		rssi, err := parseRSSI(r.Nearest[start:end])
		if err != nil {
			return Observation{}, &ParseError{Block: b, Field: "rssi", Err: err}
		}

		obs.Readings[b] = Reading{BeaconID: id, RSSI: rssi}
	}

	return obs, nil
}

// Parse decodes r and resolves the coordinates of its beacons.
// It returns *ParseError wrapping beacon.ErrUnknownBeacon if any beacon id is not registered.
func (p *Parser) Parse(r Record) (GeoObservation, error) {
	obs, err := p.Decode(r)
	if err != nil {
		return GeoObservation{}, err
	}

	geo := GeoObservation{Observation: obs}
	for b, rd := range obs.Readings {
		pos, err := p.reg.Resolve(rd.BeaconID)
		if err != nil {
			return GeoObservation{}, &ParseError{Block: b, Field: "id", Err: err}
		}
		geo.Anchors[b] = pos
	}

	return geo, nil
}

// parseRSSI parses the first run of digits in s as signal strength magnitude
// and returns it as a non-positive number.
func parseRSSI(s string) (int, error) {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		if strings.TrimSpace(s) == "" {
			return 0, ErrEmptyField
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidRSSI, s)
	}

	end := start + 1
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}

	v, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRSSI, s)
	}

	return -v, nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
