// Public domain.

package m3like

import "math"

// PDF is the probability density of a measured pixel charge given the
// expected charge.  All charges are photo-electrons.
type PDF struct {
	ExcessNoise float64 // relative width of the single pe response
	GaussLimit  float64 // expected charge above which the density is Gaussian
	NStd        float64 // half width of the Poisson sum, standard deviations
	Floor       float64 // smallest density returned
	MinPed      float64 // smallest pedestal width used
}

// Density returns the density of measured charge q for expected charge m
// and pedestal width ped.
//
// Without signal the density is pedestal noise alone.  Above GaussLimit
// it is Gaussian with variance ped² + m(1+x²).  In between it is a Poisson
// sum over photo-electron counts n, each smeared by a Gaussian of variance
// ped² + n·x².  The result is never below Floor.
func (f *PDF) Density(q, m, ped float64) float64 {
	ped = math.Max(ped, f.MinPed)
	p2 := ped * ped
	x2 := f.ExcessNoise * f.ExcessNoise
	var pdf float64
	switch {
	case m <= 0:
		pdf = math.Exp(-q*q/(2*p2)) / (ped * math.Sqrt(2*math.Pi))
	case m > f.GaussLimit:
		v := p2 + m*(1+x2)
		d := q - m
		pdf = math.Exp(-d*d/(2*v)) / math.Sqrt(2*math.Pi*v)
	default:
		sd := math.Sqrt(m*(1+x2) + p2)
		nMin := math.Max(0, math.Floor(m-f.NStd*sd))
		nMax := math.Floor(m + f.NStd*sd)
		lm := math.Log(m)
		for n := nMin; n <= nMax; n++ {
			v := p2 + n*x2
			d := q - n
			pois := math.Exp(n*lm - m - LogFactorial(int(n)))
			pdf += pois / math.Sqrt(2*math.Pi*v) * math.Exp(-d*d/(2*v))
		}
	}
	if !(pdf >= f.Floor) {
		return f.Floor
	}
	return pdf
}

var logFact = func() (t [11]float64) {
	f := 1.
	for n := range t {
		if n > 0 {
			f *= float64(n)
		}
		t[n] = math.Log(f)
	}
	return
}()

// LogFactorial returns ln n!, exactly tabulated for n < 11 and by
// Ramanujan's approximation above.
func LogFactorial(n int) float64 {
	if n < len(logFact) {
		return logFact[n]
	}
	x := float64(n)
	return x*math.Log(x) - x + math.Log(x*(1+4*x*(1+2*x)))/6 +
		.5*math.Log(math.Pi)
}
