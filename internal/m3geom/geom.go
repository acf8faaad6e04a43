// Public domain.

// Package m3geom builds the coordinate machinery of the shower model:
// mean array pointing, the sky basis, pixel lines of sight and the shower
// barycenter for a candidate parameter vector.
//
// Ground coordinates are x east, y north, z up.  Telescope pointing uses
// azimuth from north through east.  The shower axis uses azimuth
// counterclockwise from x, as does m3data.Params.
package m3geom

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/model3d/internal/m3data"
)

// PointingVector returns the unit vector toward elevation el, azimuth az,
// both degrees, azimuth from north through east.
func PointingVector(el, az float64) r3.Vector {
	sz, cz := unit.AngleFromDeg(90 - el).Sincos()
	sa, ca := unit.AngleFromDeg(az).Sincos()
	return r3.Vector{X: sz * sa, Y: sz * ca, Z: cz}
}

func valid(el, az float64) bool { return el != 0 || az != 0 }

// MeanPointing averages telescope pointings.  Telescopes reporting exactly
// (0, 0) have no pointing and are skipped.  Azimuth is averaged on the
// circle.  With no valid pointing the result is (0, 0) with n = 0.
func MeanPointing(el, az []float64) (mEl, mAz float64, n int) {
	var s, c float64
	for t := range el {
		if !valid(el[t], az[t]) {
			continue
		}
		mEl += el[t]
		sa, ca := unit.AngleFromDeg(az[t]).Sincos()
		s += sa
		c += ca
		n++
	}
	if n == 0 {
		return 0, 0, 0
	}
	mEl /= float64(n)
	mAz = math.Atan2(s, c) * 180 / math.Pi
	if mAz < 0 {
		mAz += 360
	}
	if mAz >= 360 {
		mAz = 0
	}
	return
}

// PointingSpread returns the largest pairwise elevation and azimuth
// differences among telescopes with valid pointing, in degrees.
func PointingSpread(el, az []float64) (dEl, dAz float64) {
	for i := range el {
		if !valid(el[i], az[i]) {
			continue
		}
		for j := i + 1; j < len(el); j++ {
			if !valid(el[j], az[j]) {
				continue
			}
			dEl = math.Max(dEl, math.Abs(el[i]-el[j]))
			dAz = math.Max(dAz, math.Abs(WrapDeg(az[i]-az[j])))
		}
	}
	return
}

// WrapDeg wraps an angle into (-180, 180].
func WrapDeg(a float64) float64 {
	a = math.Mod(a, 360)
	switch {
	case a > 180:
		a -= 360
	case a <= -180:
		a += 360
	}
	return a
}

// NewBasis returns the right handed sky basis for pointing el, az:
// Z along the pointing, X = normalize(ẑ × Z), Y = Z × X.  At zenith
// X takes its limit along the azimuth.
func NewBasis(el, az float64) m3data.Basis {
	var b m3data.Basis
	b.Z = PointingVector(el, az)
	b.X = r3.Vector{Z: 1}.Cross(b.Z)
	if b.X.Norm() < 1e-12 {
		sa, ca := unit.AngleFromDeg(az).Sincos()
		b.X = r3.Vector{X: -ca, Y: sa}
	}
	m3data.Normalize(&b.X)
	b.Y = b.Z.Cross(b.X)
	m3data.Normalize(&b.Y)
	return b
}

// LineOfSight returns the ground direction seen at camera offset x, y
// (deg) in basis b.  ySign is the sign of camera y along b.Y.
func LineOfSight(b *m3data.Basis, x, y, ySign float64) r3.Vector {
	const r = math.Pi / 180
	v := b.Z.Add(b.X.Mul(x * r)).Add(b.Y.Mul(ySign * y * r))
	m3data.Normalize(&v)
	return v
}

// SetupPointing sets the mean pointing and basis of d from the telescope
// pointings.  It returns false if no telescope has valid pointing.
func SetupPointing(d *m3data.ShowerModelData) bool {
	el, az, n := MeanPointing(d.TelEl, d.TelAz)
	d.PointEl, d.PointAz = el, az
	if n == 0 {
		return false
	}
	d.Basis = NewBasis(el, az)
	return true
}

// SetupLineOfSight computes lines of sight and incidence cosines for all
// pixels of d.  The basis must be set.
func SetupLineOfSight(d *m3data.ShowerModelData, ySign float64) {
	for t := 0; t < d.NTel; t++ {
		for p := range d.LOS[t] {
			v := LineOfSight(&d.Basis, d.CamX[t][p], d.CamY[t][p], ySign)
			d.LOS[t][p] = v
			d.CosTheta[t][p] = v.Dot(d.Basis.Z)
		}
	}
}

// AxisVector returns the shower axis unit vector, pointing up toward the
// source, for shower elevation el and azimuth az (deg, counterclockwise
// from x).
func AxisVector(el, az float64) r3.Vector {
	sz, cz := unit.AngleFromDeg(90 - el).Sincos()
	sa, ca := unit.AngleFromDeg(az).Sincos()
	return r3.Vector{X: sz * ca, Y: sz * sa, Z: cz}
}

// AxisAngles is the inverse of AxisVector.  Azimuth is in (-180, 180].
func AxisAngles(v r3.Vector) (el, az float64) {
	el = math.Atan2(v.Z, math.Hypot(v.X, v.Y)) * 180 / math.Pi
	az = math.Atan2(v.Y, v.X) * 180 / math.Pi
	return el, az
}

// CompassAzimuth converts a shower axis azimuth to azimuth from north
// through east, in [0, 360).
func CompassAzimuth(az float64) float64 {
	a := math.Mod(90-az, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// Barycenter places the shower barycenter for parameters par and stores
// the axis and the barycenter relative to each telescope in d.
func Barycenter(d *m3data.ShowerModelData, par *m3data.Params) {
	d.Axis = AxisVector(par[m3data.El], par[m3data.Az])
	b0 := r3.Vector{X: par[m3data.XCore], Y: par[m3data.YCore]}.
		Add(d.Axis.Mul(par[m3data.Height]))
	for t := range d.BaryTel {
		d.BaryTel[t] = b0.Sub(d.TelPos[t])
	}
}

// OffsetToDirection returns the sky direction at offset xoff, yoff (deg)
// from the basis pointing.  ySign is the sign of offset y along b.Y.
func OffsetToDirection(b *m3data.Basis, xoff, yoff, ySign float64) r3.Vector {
	return LineOfSight(b, xoff, yoff, ySign)
}

// DirectionToOffset is the exact inverse of OffsetToDirection.  It returns
// false for directions not in front of the basis plane.
func DirectionToOffset(b *m3data.Basis, dir r3.Vector, ySign float64) (xoff, yoff float64, ok bool) {
	z := dir.Dot(b.Z)
	if z <= 0 {
		return 0, 0, false
	}
	const d = 180 / math.Pi
	return dir.Dot(b.X) / z * d, ySign * dir.Dot(b.Y) / z * d, true
}

// PlaneDistance returns the distance between ground points p1 and p2
// measured perpendicular to unit direction dir.
func PlaneDistance(p1, p2, dir r3.Vector) float64 {
	return p2.Sub(p1).Cross(dir).Norm()
}
