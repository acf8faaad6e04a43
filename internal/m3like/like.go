// Public domain.

// Package m3like computes the likelihood of measured pixel signals under the
// shower model, the goodness of fit, and numerical derivatives for the
// least squares solver.
package m3like

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3geom"
	"github.com/soniakeys/model3d/internal/m3model"
)

var (
	// ErrModelNaN is returned when the model is undefined at a pixel.
	ErrModelNaN = errors.New("model signal is NaN")
	// ErrTooFewPixels is returned by Goodness for 8 or fewer pixels.
	ErrTooFewPixels = errors.New("too few pixels for goodness of fit")
)

// Evaluator binds a data workspace to the model and pixel density.  Only
// pixels flagged clean contribute.  Methods update the geometry of Data
// for the parameters they are given.
type Evaluator struct {
	Data  *m3data.ShowerModelData
	Model *m3model.Model
	PDF   *PDF
}

// each calls fn with the measured and expected charge, pedestal width and
// density of each clean pixel.
func (e *Evaluator) each(par *m3data.Params, fn func(q, m, ped, pdf float64)) error {
	d := e.Data
	m3geom.Barycenter(d, par)
	for t := 0; t < d.NTel; t++ {
		for p, c := range d.Clean[t] {
			if !c {
				continue
			}
			m := e.Model.Expected(d, par, t, p)
			if math.IsNaN(m) {
				return fmt.Errorf("%w: telescope %d pixel %d, %v",
					ErrModelNaN, t, p, *par)
			}
			q := d.Signal[t][p]
			ped := math.Max(d.PedVar[t][p], e.PDF.MinPed)
			fn(q, m, ped, e.PDF.Density(q, m, ped))
		}
	}
	return nil
}

// LogLikelihood returns -2 ln L summed over clean pixels.
func (e *Evaluator) LogLikelihood(par *m3data.Params) (float64, error) {
	ll := 0.
	err := e.each(par, func(_, _, _, pdf float64) {
		ll += -2 * math.Log(pdf)
	})
	return ll, err
}

// Goodness returns the goodness of fit and -2 ln L over the n clean pixels.
//
// Goodness is the excess of -2 ln L over its expectation, in units of
// its standard deviation √(2(n-8)).  The expectation of each pixel is
// that of the Gaussian regime, 1 + ln 2π + ln(ped² + m(1+x²)).
func (e *Evaluator) Goodness(par *m3data.Params) (gof, ll float64, n int, err error) {
	x2 := e.PDF.ExcessNoise * e.PDF.ExcessNoise
	var sum float64
	err = e.each(par, func(_, m, ped, pdf float64) {
		l := -2 * math.Log(pdf)
		ll += l
		sum += l - 1 - math.Log(2*math.Pi*(ped*ped+m*(1+x2)))
		n++
	})
	if err != nil {
		return math.NaN(), ll, n, err
	}
	if n <= m3data.NParams {
		return math.NaN(), ll, n, fmt.Errorf("%w: %d", ErrTooFewPixels, n)
	}
	return sum / math.Sqrt(2*float64(n-m3data.NParams)), ll, n, nil
}

// PixelFunc computes values of the clean pixels into dst.
type PixelFunc func(dst []float64, par *m3data.Params) error

// PixelTerms sets dst to -2 ln pdf of each clean pixel.
func (e *Evaluator) PixelTerms(dst []float64, par *m3data.Params) error {
	i := 0
	return e.each(par, func(_, _, _, pdf float64) {
		dst[i] = -2 * math.Log(pdf)
		i++
	})
}

// NResiduals is the number of least squares residuals of n clean pixels.
func NResiduals(n int) int { return 2 * n }

// Residuals sets dst to least squares residuals, two per clean pixel,
// whose squares sum to -2 ln pdf - ln 2πped².  This differs from taking
// -2 ln pdf itself as the residual:  Σr² is -2 ln L plus a constant, so
// the least squares minimum is the likelihood maximum.
//
// Where the density is Gaussian with variance V = ped² + m(1+x²), the
// residuals are (q-m)/√V and √ln(V/ped²).  Their Jacobian gives the
// Fisher information as the normal matrix, which stays positive definite
// at the minimum.  Elsewhere, in the Poisson regime or at the density
// floor, the first residual is √(-2 ln pdf - ln 2πped²) with the sign of
// q-m and the second is zero.  The density never exceeds that of the pedestal alone so the
// argument of the root is not negative.
func (e *Evaluator) Residuals(dst []float64, par *m3data.Params) error {
	a := 1 + e.PDF.ExcessNoise*e.PDF.ExcessNoise
	i := 0
	return e.each(par, func(q, m, ped, pdf float64) {
		p2 := ped * ped
		switch {
		case pdf > e.PDF.Floor && m <= 0:
			dst[i], dst[i+1] = q/ped, 0
		case pdf > e.PDF.Floor && m > e.PDF.GaussLimit:
			v := p2 + m*a
			dst[i] = (q - m) / math.Sqrt(v)
			dst[i+1] = math.Sqrt(math.Log(v / p2))
		default:
			r2 := -2*math.Log(pdf) - math.Log(2*math.Pi*p2)
			dst[i], dst[i+1] = math.Copysign(math.Sqrt(math.Max(r2, 1e-12)), q-m), 0
		}
		i += 2
	})
}

// Steps returns numerical derivative steps max(frac·|start|, min).
func Steps(start *m3data.Params, frac, minStep *[m3data.NParams]float64) (s m3data.Params) {
	for k := range s {
		s[k] = math.Max(frac[k]*math.Abs(start[k]), minStep[k])
	}
	return
}

// Jacobian sets dst, rows of pixel function f × NParams, to central
// differences (f(x+δ) - f(x-δ)) / 2δ of f at par with steps δ.
// Parameters marked fixed get a zero column.
func (e *Evaluator) Jacobian(dst *mat.Dense, par, step *m3data.Params, fixed []bool, f PixelFunc) error {
	n, _ := dst.Dims()
	plus := make([]float64, n)
	minus := make([]float64, n)
	for k := 0; k < m3data.NParams; k++ {
		if fixed != nil && fixed[k] {
			for i := 0; i < n; i++ {
				dst.Set(i, k, 0)
			}
			continue
		}
		p := *par
		p[k] = par[k] + step[k]
		if err := f(plus, &p); err != nil {
			return err
		}
		p[k] = par[k] - step[k]
		if err := f(minus, &p); err != nil {
			return err
		}
		floats.Sub(plus, minus)
		floats.Scale(1/(2*step[k]), plus)
		dst.SetCol(k, plus)
	}
	// leave geometry current for par
	m3geom.Barycenter(e.Data, par)
	return nil
}
