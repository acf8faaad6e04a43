// Public domain.

// Package m3data holds the data shared by the model3d packages:  the shower
// parameter vector, the per-event fit workspace, and the detector and event
// inputs supplied by the surrounding analysis.
package m3data

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// ErrShape is returned for inconsistent telescope or pixel counts.
var ErrShape = errors.New("inconsistent data shape")

// Basis is the sky basis in ground coordinates.  Z is along the mean
// pointing direction.
type Basis struct {
	X, Y, Z r3.Vector
}

// ShowerModelData is the workspace of a model fit.
//
// Detector constants (telescope positions, mirror areas, pixel coordinates
// and solid angles) are set by New and not changed after.  Everything else
// is per-event and is cleared by ResetForEvent.  Per-pixel slices of
// telescope t all have length NPix[t].
type ShowerModelData struct {
	NTel int
	NPix []int

	// detector constants
	TelPos     []r3.Vector // ground position, m
	MirrorArea []float64   // m²
	CamX, CamY [][]float64 // pixel camera coordinates, deg
	Omega      [][]float64 // pixel solid angle, sr

	// pointing and pixel geometry
	TelEl, TelAz     []float64 // telescope pointing, deg, azimuth from north
	PointEl, PointAz float64   // mean pointing
	Basis            Basis
	LOS              [][]r3.Vector // pixel line of sight, ground frame
	CosTheta         [][]float64   // cosine of pixel angle to pointing axis

	// measurement
	Signal [][]float64 // pe
	PedVar [][]float64 // pedestal rms, pe
	Clean  [][]bool    // pixel contributes to the likelihood

	// geometry of the current parameter vector
	Axis    r3.Vector   // shower axis unit vector
	BaryTel []r3.Vector // barycenter relative to each telescope

	// fit bookkeeping
	Par, Start              Params
	Step                    Params
	Goodness, StartGoodness float64
	Converged, Good         bool
	NClean                  int
}

// NewShape allocates a workspace for nTel telescopes where telescope t has
// nPix[t] pixels.  Detector constants are left zero.
func NewShape(nTel int, nPix []int) (*ShowerModelData, error) {
	if nTel <= 0 || len(nPix) != nTel {
		return nil, fmt.Errorf("%w: %d telescopes, %d pixel counts",
			ErrShape, nTel, len(nPix))
	}
	for t, n := range nPix {
		if n <= 0 {
			return nil, fmt.Errorf("%w: telescope %d has %d pixels",
				ErrShape, t, n)
		}
	}
	d := &ShowerModelData{
		NTel:       nTel,
		NPix:       append([]int{}, nPix...),
		TelPos:     make([]r3.Vector, nTel),
		MirrorArea: make([]float64, nTel),
		CamX:       make([][]float64, nTel),
		CamY:       make([][]float64, nTel),
		Omega:      make([][]float64, nTel),
		TelEl:      make([]float64, nTel),
		TelAz:      make([]float64, nTel),
		LOS:        make([][]r3.Vector, nTel),
		CosTheta:   make([][]float64, nTel),
		Signal:     make([][]float64, nTel),
		PedVar:     make([][]float64, nTel),
		Clean:      make([][]bool, nTel),
		BaryTel:    make([]r3.Vector, nTel),
	}
	for t, n := range nPix {
		d.CamX[t] = make([]float64, n)
		d.CamY[t] = make([]float64, n)
		d.Omega[t] = make([]float64, n)
		d.LOS[t] = make([]r3.Vector, n)
		d.CosTheta[t] = make([]float64, n)
		d.Signal[t] = make([]float64, n)
		d.PedVar[t] = make([]float64, n)
		d.Clean[t] = make([]bool, n)
	}
	return d, nil
}

// New allocates a workspace for a detector and sets the detector constants.
//
// Mirror area (m²) and pixel diameter (deg) default to the arguments for
// telescopes that do not specify their own.
func New(det *Detector, mirrorArea, pixelDiameter float64) (*ShowerModelData, error) {
	nPix := make([]int, len(det.Tel))
	for t, tel := range det.Tel {
		if len(tel.PixX) != len(tel.PixY) {
			return nil, fmt.Errorf("%w: telescope %d has %d x and %d y "+
				"pixel coordinates", ErrShape, t, len(tel.PixX), len(tel.PixY))
		}
		nPix[t] = len(tel.PixX)
	}
	d, err := NewShape(len(det.Tel), nPix)
	if err != nil {
		return nil, err
	}
	for t, tel := range det.Tel {
		d.TelPos[t] = tel.Pos
		d.MirrorArea[t] = mirrorArea
		if tel.MirrorArea > 0 {
			d.MirrorArea[t] = tel.MirrorArea
		}
		diam := pixelDiameter
		if tel.PixelDiameter > 0 {
			diam = tel.PixelDiameter
		}
		r := diam / 2 * math.Pi / 180
		if d.MirrorArea[t] <= 0 || r <= 0 {
			return nil, fmt.Errorf("%w: telescope %d mirror area %g, "+
				"pixel diameter %g", ErrShape, t, d.MirrorArea[t], diam)
		}
		copy(d.CamX[t], tel.PixX)
		copy(d.CamY[t], tel.PixY)
		for p := range d.Omega[t] {
			d.Omega[t][p] = math.Pi * r * r
		}
	}
	return d, nil
}

// ResetForEvent clears all per-event state, keeping detector constants.
func (d *ShowerModelData) ResetForEvent() {
	for t := 0; t < d.NTel; t++ {
		d.TelEl[t] = 0
		d.TelAz[t] = 0
		d.BaryTel[t] = r3.Vector{}
		for p := range d.LOS[t] {
			d.LOS[t][p] = r3.Vector{}
			d.CosTheta[t][p] = 0
			d.Signal[t][p] = 0
			d.PedVar[t][p] = 0
			d.Clean[t][p] = false
		}
	}
	d.PointEl, d.PointAz = 0, 0
	d.Basis = Basis{}
	d.Axis = r3.Vector{}
	d.Par = Params{}
	d.Start = Params{}
	d.Step = Params{}
	d.Goodness, d.StartGoodness = 0, 0
	d.Converged, d.Good = false, false
	d.NClean = 0
}

// CountClean counts pixels flagged clean and stores the count in NClean.
func (d *ShowerModelData) CountClean() int {
	n := 0
	for _, c := range d.Clean {
		for _, f := range c {
			if f {
				n++
			}
		}
	}
	d.NClean = n
	return n
}
