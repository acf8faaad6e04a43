// Public domain.

// Package m3model evaluates the expected Cherenkov signal of a pixel for
// a shower with Gaussian longitudinal and transverse light profiles, after
// Lemoine-Goumard, Degrange and Tluczykont, Astropart. Phys. 25, 195 (2006).
package m3model

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/soniakeys/model3d/internal/m3data"
)

// Model holds the constants of the emission model.
type Model struct {
	// EtaCoeff is the Cherenkov half-angle, radians, for a vertical shower.
	// The half-angle at zenith angle z is EtaCoeff·√cos z.
	EtaCoeff float64
}

// Eta returns the Cherenkov half-angle for a shower at elevation el (deg).
func (m *Model) Eta(el float64) float64 {
	return m.EtaCoeff * math.Sqrt(math.Cos((90-el)*math.Pi/180))
}

// AngularDensity is the probability per steradian of emission at angle eps
// (rad) from the shower axis:  flat inside half-angle eta, falling off
// exponentially outside.  It integrates to 1 in the small angle limit.
func AngularDensity(eps, eta float64) float64 {
	k := 1 / (9 * math.Pi * eta * eta)
	if eps <= eta {
		return k
	}
	return k * eta / eps * math.Exp(-(eps-eta)/(4*eta))
}

// Density returns the number of photons per unit area and solid angle seen
// along unit line of sight p from a telescope at vector b from the shower
// barycenter, for axis s, widths sigmaL, sigmaT and yield nc, excluding the
// angular emission factor.  It is NaN outside the model domain
// 0 < sigmaT ≤ sigmaL.
func Density(b, p, s r3.Vector, sigmaL, sigmaT, nc float64) float64 {
	if !(sigmaT > 0 && sigmaL >= sigmaT) {
		return math.NaN()
	}
	bs := b.Dot(s)
	bp := b.Dot(p)
	u := math.Max(-1, math.Min(1, s.Dot(p)))
	dB2 := b.Norm2() - bp*bp

	l2 := sigmaL * sigmaL
	t2 := sigmaT * sigmaT
	sigU := math.Sqrt(t2*u*u + l2*(1-u*u))
	d2 := l2 - t2

	// half-Gaussian cut where the line of sight meets the ground
	cx := -(l2*bp - d2*u*bs) / (sigU * sigmaT * sigmaL)
	c := 1 - Freq(cx)

	t1 := nc * c / (2 * math.Pi * sigU * sigmaT)
	w := u*bp - bs
	e := dB2/t2 - d2/(t2*sigU*sigU)*w*w
	return t1 * math.Exp(-.5*e)
}

// Expected returns the expected signal, photo-electrons, of pixel p of
// telescope t.  Barycenter vectors and axis in d must be current for par.
// The result is NaN if the parameters are outside the model domain.
func (m *Model) Expected(d *m3data.ShowerModelData, par *m3data.Params, t, p int) float64 {
	l := d.LOS[t][p]
	rho := Density(d.BaryTel[t], l, d.Axis,
		par[m3data.SigmaL], par[m3data.SigmaT], par.Nc())
	u := math.Max(-1, math.Min(1, d.Axis.Dot(l)))
	eps := math.Acos(u)
	ang := AngularDensity(eps, m.Eta(par[m3data.El]))
	return d.MirrorArea[t] * d.Omega[t][p] * d.CosTheta[t][p] * ang * rho
}

// Freq is the standard normal cumulative distribution, by the rational
// approximation of Abramowitz and Stegun 7.1.26.  Absolute error is below
// 1e-7.
func Freq(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	sign := 1.
	if x < 0 {
		sign = -1
	}
	x = math.Abs(x) / math.Sqrt2
	t := 1 / (1 + p*x)
	y := 1 - ((((a5*t+a4)*t+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return .5 * (1 + sign*y)
}
