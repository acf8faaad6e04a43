// Public domain.

package m3fit

import (
	"math"

	"github.com/soniakeys/model3d/internal/m3conf"
)

// vertical height in km of a point at distance h (m) along an axis of
// elevation el (deg)
func verticalKm(h, el float64) float64 {
	return h / 1000 * math.Sin(el*math.Pi/180)
}

// SlantDepth returns the atmospheric depth, g/cm², at the shower maximum
// for height of maximum h (m, along the axis) and axis elevation el (deg).
func SlantDepth(a *m3conf.Atmosphere, h, el float64) float64 {
	return a.Depth0 * math.Exp(-verticalKm(h, el)/a.ScaleHeight)
}

// AirDensity returns the density of air, kg/m³, at height z km in a
// standard atmosphere with a linear temperature lapse.
func AirDensity(a *m3conf.Atmosphere, z float64) float64 {
	t := a.T0 - a.Lapse*z
	up := a.Gravity * a.MolarMass / (a.GasConstant * a.Lapse)
	p := a.P0 * math.Pow(1-a.Lapse*z/a.T0, up)
	return p * a.MolarMass / (a.GasConstant * t * 1000)
}

// ReducedWidth returns transverse width sigmaT (m) as a column depth at
// the shower maximum over the slant depth there, in units of 1e-3.  It is
// zero when the depth is not positive.
func ReducedWidth(a *m3conf.Atmosphere, sigmaT, h, el float64) float64 {
	depth := SlantDepth(a, h, el)
	if !(depth > 0) {
		return 0
	}
	// cm · g/cm³
	col := sigmaT * 100 * AirDensity(a, verticalKm(h, el)) * .001
	return col / depth * 1000
}
