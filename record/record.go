// Package record decodes raw tag observations.
//
// A raw record carries a packed field with three fixed-width beacon blocks.
// Every block holds an 8 character beacon id and a 3 character signal strength
// magnitude; the sign of the signal strength is not encoded.
package record

import (
	rtls "github.com/milosgajdos/go-rtls"
)

// Record is a raw observation row
type Record struct {
	// Timestamp is the observation time
	Timestamp int64
	// Nearest is the packed field with beacon blocks
	Nearest string
	// InstanceID identifies the tag
	InstanceID string
}

// Reading is a signal strength reported for a beacon
type Reading struct {
	// BeaconID identifies the beacon
	BeaconID string
	// RSSI is received signal strength [dBm]; it is never positive
	RSSI int
}

// Observation is a decoded record
type Observation struct {
	// Index is the position of the source record in its batch
	Index int
	// Timestamp is the observation time
	Timestamp int64
	// TagID identifies the tag
	TagID string
	// Readings are the beacon readings in block order
	Readings [Blocks]Reading
}

// GeoObservation is an observation with resolved beacon coordinates
type GeoObservation struct {
	Observation
	// Anchors are the beacon positions in block order
	Anchors [Blocks]rtls.Point
}
