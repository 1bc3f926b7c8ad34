package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/milosgajdos/go-rtls/beacon"
	"github.com/milosgajdos/go-rtls/record"
	"github.com/milosgajdos/go-rtls/trilat"
)

// Drop reasons. Distance and locate failures happen after parsing.
const (
	ReasonUnknownBeacon   = "unknown_beacon"
	ReasonShortField      = "short_field"
	ReasonEmptyField      = "empty_field"
	ReasonInvalidRSSI     = "invalid_rssi"
	ReasonParse           = "parse"
	ReasonInvalidDistance = "invalid_distance"
	ReasonLocate          = "locate"
)

// Drop is a record dropped from the batch
type Drop struct {
	// Index is the position of the record in the batch
	Index int
	// Timestamp is the record timestamp
	Timestamp int64
	// TagID identifies the tag which reported the record
	TagID string
	// Reason classifies Err
	Reason string
	// Err is the parse or localization error
	Err error
}

// Report summarises a pipeline run
type Report struct {
	// Total is the number of input records
	Total int
	// Parsed is the number of records parsed successfully
	Parsed int
	// Dropped is the number of records which failed to parse or locate
	Dropped int
	// Logical is the number of logical observations
	Logical int
	// SemiLogical is the number of semi-logical observations
	SemiLogical int
	// Discarded is the number of observations with beacons too far apart
	Discarded int
	// Degenerate is the number of positions solved by the anchor centroid
	Degenerate int
	// Drops are the dropped records sorted by index
	Drops []Drop
	// Reasons counts drops per reason
	Reasons map[string]int
}

// String implements fmt.Stringer
func (r Report) String() string {
	reasons := make([]string, 0, len(r.Reasons))
	for reason, n := range r.Reasons {
		reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(reasons)

	return fmt.Sprintf("total=%d parsed=%d dropped=%d logical=%d semi_logical=%d discarded=%d degenerate=%d reasons=[%s]",
		r.Total, r.Parsed, r.Dropped, r.Logical, r.SemiLogical, r.Discarded, r.Degenerate, strings.Join(reasons, " "))
}

// addDrops records drops in index order
func (r *Report) addDrops(drops []Drop) {
	sort.Slice(drops, func(i, j int) bool { return drops[i].Index < drops[j].Index })

	r.Drops = drops
	r.Dropped = len(drops)
	r.Reasons = make(map[string]int)
	for _, d := range drops {
		r.Reasons[d.Reason]++
	}
}

func newDrop(rec record.Record, idx int, err error) Drop {
	return Drop{
		Index:     idx,
		Timestamp: rec.Timestamp,
		TagID:     rec.InstanceID,
		Reason:    reason(err),
		Err:       err,
	}
}

// locateDrop returns the drop of an observation which could not be located
func locateDrop(o record.GeoObservation, err error) Drop {
	reason := ReasonLocate
	if errors.Is(err, trilat.ErrInvalidInput) {
		reason = ReasonInvalidDistance
	}

	return Drop{
		Index:     o.Index,
		Timestamp: o.Timestamp,
		TagID:     o.TagID,
		Reason:    reason,
		Err:       err,
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, beacon.ErrUnknownBeacon):
		return ReasonUnknownBeacon
	case errors.Is(err, record.ErrShortField):
		return ReasonShortField
	case errors.Is(err, record.ErrEmptyField):
		return ReasonEmptyField
	case errors.Is(err, record.ErrInvalidRSSI):
		return ReasonInvalidRSSI
	default:
		return ReasonParse
	}
}
