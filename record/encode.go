package record

import (
	"fmt"
	"strings"
)

// filler pads the parts of a block which carry no data
const filler = '.'

// Encode packs readings into a field using layout.
// It returns error if a beacon id does not have the layout id width
// or if a signal strength magnitude does not fit the rssi window.
func Encode(layout Layout, readings [Blocks]Reading) (string, error) {
	if err := layout.Validate(); err != nil {
		return "", err
	}

	buf := []byte(strings.Repeat(string(filler), Blocks*layout.Stride))
	for b, rd := range readings {
		if len(rd.BeaconID) != layout.IDWidth {
			return "", fmt.Errorf("block %d: beacon id %q must be %d characters", b, rd.BeaconID, layout.IDWidth)
		}

		if rd.RSSI > 0 {
			return "", fmt.Errorf("block %d: positive rssi %d", b, rd.RSSI)
		}

		mag := fmt.Sprintf("%0*d", layout.RSSIWidth, -rd.RSSI)
		if len(mag) > layout.RSSIWidth {
			return "", fmt.Errorf("block %d: rssi %d does not fit %d characters", b, rd.RSSI, layout.RSSIWidth)
		}

		start, _ := layout.id(b)
		copy(buf[start:], rd.BeaconID)

		start, _ = layout.rssi(b)
		copy(buf[start:], mag)
	}

	return string(buf), nil
}
