package smooth

import rtls "github.com/milosgajdos/go-rtls"

// RTS is Rauch Tung Striebel optimal filter smoother
type RTS interface {
	// rtls.Smoother is filter smoother
	rtls.Smoother
}
