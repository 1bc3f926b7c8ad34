package record

import "fmt"

// Packed field layout. Offsets are relative to the start of a block.
const (
	// Blocks is the number of beacon blocks in a packed field
	Blocks = 3
	// BlockStride is the width of a beacon block
	BlockStride = 37
	// IDOffset is the offset of the beacon id
	IDOffset = 16
	// IDWidth is the width of the beacon id
	IDWidth = 8
	// RSSIOffset is the offset of the signal strength magnitude
	RSSIOffset = 33
	// RSSIWidth is the width of the signal strength magnitude
	RSSIWidth = 3
)

// Layout describes where beacon ids and signal strengths are stored in a packed field
type Layout struct {
	Stride     int `json:"stride"`
	IDOffset   int `json:"id_offset"`
	IDWidth    int `json:"id_width"`
	RSSIOffset int `json:"rssi_offset"`
	RSSIWidth  int `json:"rssi_width"`
}

// DefaultLayout is the layout of the packed field reported by the tags
var DefaultLayout = Layout{
	Stride:     BlockStride,
	IDOffset:   IDOffset,
	IDWidth:    IDWidth,
	RSSIOffset: RSSIOffset,
	RSSIWidth:  RSSIWidth,
}

// Validate returns error if the id and rssi windows are empty,
// overlap or do not fit inside a block.
func (l Layout) Validate() error {
	if l.IDWidth <= 0 || l.RSSIWidth <= 0 {
		return fmt.Errorf("invalid field widths: id %d, rssi %d", l.IDWidth, l.RSSIWidth)
	}

	if l.IDOffset < 0 || l.RSSIOffset < 0 {
		return fmt.Errorf("invalid field offsets: id %d, rssi %d", l.IDOffset, l.RSSIOffset)
	}

	if l.IDOffset+l.IDWidth > l.Stride || l.RSSIOffset+l.RSSIWidth > l.Stride {
		return fmt.Errorf("fields do not fit block stride %d", l.Stride)
	}

	if l.IDOffset < l.RSSIOffset+l.RSSIWidth && l.RSSIOffset < l.IDOffset+l.IDWidth {
		return fmt.Errorf("id and rssi fields overlap")
	}

	return nil
}

// Size returns the minimum length of a packed field holding all blocks
func (l Layout) Size() int {
	last := (Blocks - 1) * l.Stride
	return max(last+l.IDOffset+l.IDWidth, last+l.RSSIOffset+l.RSSIWidth)
}

// id returns the window of the beacon id in block b
func (l Layout) id(b int) (start, end int) {
	start = b*l.Stride + l.IDOffset
	return start, start + l.IDWidth
}

// rssi returns the window of the signal strength in block b
func (l Layout) rssi(b int) (start, end int) {
	start = b*l.Stride + l.RSSIOffset
	return start, start + l.RSSIWidth
}
