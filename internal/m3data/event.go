// Public domain.

package m3data

import (
	"time"

	"github.com/golang/geo/r3"
)

// Detector is the array geometry, constant over a run.
type Detector struct {
	Tel []Telescope
}

// Telescope is the geometry of one telescope.  Zero MirrorArea or
// PixelDiameter select configured defaults.
type Telescope struct {
	Pos           r3.Vector // ground position, m; x east, y north, z up
	MirrorArea    float64   // m²
	PixelDiameter float64   // deg
	PixX, PixY    []float64 // pixel camera coordinates, deg
}

// Hillas holds the moment parameters of one camera image.  Lengths are
// camera degrees.
type Hillas struct {
	CenX, CenY     float64
	Size           float64 // pe
	CosPhi, SinPhi float64 // major axis orientation
	Length, Width  float64
}

// Reco is the geometric (non-model) reconstruction of an event, used
// for start values.
type Reco struct {
	NImages      int
	XOff, YOff   float64 // source offset in the sky basis, deg
	XCore, YCore float64 // ground core, m
}

// TelEvent is the data of one telescope for one event.
type TelEvent struct {
	El, Az float64 // pointing, deg; azimuth from north through east
	Hillas Hillas
	Signal []float64 // pe
	PedVar []float64 // pedestal rms, pe
	Image  []bool
	Border []bool
}

// Event is one array event.  Truth is set only for simulated events.
type Event struct {
	Num   int
	Time  time.Time
	Tel   []TelEvent
	Reco  Reco
	Truth *Params
}
