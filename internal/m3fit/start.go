// Public domain.

package m3fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3geom"
)

// estimate derives start values from the geometric reconstruction and
// Hillas parameters of the event.
//
// Height of maximum is triangulated from pairs of images:  the telescope
// separation perpendicular to the pointing over the tangent of the angle
// between image centroids.  Pairs are weighted 1/(1/log10 s₁ + 1/log10 s₂)
// for image sizes s.  The same triangulation of the near and far ends of
// the image length gives the longitudinal width.
func (w *fit) estimate() (s m3data.Params, err error) {
	d := w.data
	fc := &w.cfg.Fit
	reco := &w.ev.Reco

	if reco.XOff == 0 && reco.YOff == 0 {
		return s, fmt.Errorf("%w: no geometric direction", ErrRejected)
	}
	dir := m3geom.OffsetToDirection(&d.Basis, reco.XOff, reco.YOff,
		w.cfg.Camera.OffsetYSign)
	s[m3data.El], s[m3data.Az] = m3geom.AxisAngles(dir)

	if math.Abs(reco.XCore) >= fc.CoreCut || math.Abs(reco.YCore) >= fc.CoreCut {
		return s, fmt.Errorf("%w: core (%.1f, %.1f)", ErrRejected,
			reco.XCore, reco.YCore)
	}
	s[m3data.XCore], s[m3data.YCore] = reco.XCore, reco.YCore

	var h, hIn, hOut, wt []float64
	tel := w.ev.Tel
	for i := range tel {
		hi := &tel[i].Hillas
		if hi.Size <= 1 {
			continue
		}
		for j := i + 1; j < len(tel); j++ {
			hj := &tel[j].Hillas
			if hj.Size <= 1 {
				continue
			}
			sep := math.Hypot(hi.CenX-hj.CenX, hi.CenY-hj.CenY)
			if sep <= 0 {
				continue
			}
			dist := m3geom.PlaneDistance(d.TelPos[i], d.TelPos[j], d.Basis.Z)
			xi, yi, xo, yo := lengthEnds(hi)
			xj, yj, xp, yp := lengthEnds(hj)
			h = append(h, dist/tanDeg(sep))
			hIn = append(hIn, dist/tanDeg(math.Hypot(xi-xj, yi-yj)))
			hOut = append(hOut, dist/tanDeg(math.Hypot(xo-xp, yo-yp)))
			wt = append(wt, 1/(1/math.Log10(hi.Size)+1/math.Log10(hj.Size)))
		}
	}
	if len(h) == 0 {
		return s, fmt.Errorf("%w: no image pair for emission height", ErrRejected)
	}
	w.res.EmissionHeight, w.res.EmissionRMS = stat.PopMeanStdDev(h, wt)
	s[m3data.Height] = w.res.EmissionHeight

	s[m3data.SigmaL] = math.Abs(stat.Mean(hIn, wt) - stat.Mean(hOut, wt))
	if l := s[m3data.SigmaL]; math.IsNaN(l) || l < fc.SigmaL[0] || l > fc.SigmaL[1] {
		s[m3data.SigmaL] = fc.StartSigmaL
	}

	var sw, swt, sum float64
	n := 0
	for i := range tel {
		hi := &tel[i].Hillas
		if hi.Size <= 0 {
			continue
		}
		sum += hi.Size
		n++
		if hi.Size > 1 {
			lw := math.Log10(hi.Size)
			sw += lw
			swt += lw * s[m3data.Height] * tanDeg(hi.Width)
		}
	}
	if sw > 0 {
		s[m3data.SigmaT] = swt / sw
	}
	ph := &w.cfg.Physics
	s[m3data.LogNc] = math.Log(ph.NcPerSize * ph.NominalTelescopes / float64(n) *
		sum * ph.NcCorrection)
	return s, nil
}

// checkStart applies sanity cuts to start values.
func (w *fit) checkStart(s *m3data.Params) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: start %v", ErrRejected, err)
	}
	if s[m3data.Height] > w.cfg.Fit.MaxHeight {
		return fmt.Errorf("%w: start height %.0f", ErrRejected, s[m3data.Height])
	}
	if s[m3data.LogNc] <= 0 {
		return fmt.Errorf("%w: start logNc %g", ErrRejected, s[m3data.LogNc])
	}
	return nil
}

// lengthEnds returns the camera points one length before and after the
// image centroid along the major axis.
func lengthEnds(h *m3data.Hillas) (xIn, yIn, xOut, yOut float64) {
	dx, dy := h.Length*h.CosPhi, h.Length*h.SinPhi
	return h.CenX - dx, h.CenY - dy, h.CenX + dx, h.CenY + dy
}

func tanDeg(a float64) float64 { return math.Tan(a * math.Pi / 180) }
