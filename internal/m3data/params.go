// Public domain.

package m3data

import (
	"errors"
	"fmt"
	"math"
)

// Params is the fit vector of the shower model.
//
// Angles are degrees, lengths meters.  Az is the azimuth of the shower
// axis measured counterclockwise from ground +x (east).  LogNc is the
// natural log of the number of Cherenkov photons; the model only ever
// uses exp(LogNc).
type Params [NParams]float64

// Indexes into Params.
const (
	El = iota
	Az
	XCore
	YCore
	Height
	SigmaL
	SigmaT
	LogNc
	NParams
)

// Names are short parameter names, indexed like Params.
var Names = [NParams]string{"el", "az", "xcore", "ycore", "smax",
	"sigmaL", "sigmaT", "logNc"}

// ErrDomain is wrapped by errors from Params.Validate.
var ErrDomain = errors.New("shower parameters out of model domain")

// Validate checks the preconditions of the emission model:  all components
// finite, positive height, positive transverse width and a longitudinal
// width not smaller than the transverse width.
func (p *Params) Validate() error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %g", ErrDomain, Names[i], v)
		}
	}
	switch {
	case p[Height] <= 0:
		return fmt.Errorf("%w: smax = %g", ErrDomain, p[Height])
	case p[SigmaT] <= 0:
		return fmt.Errorf("%w: sigmaT = %g", ErrDomain, p[SigmaT])
	case p[SigmaL] < p[SigmaT]:
		return fmt.Errorf("%w: sigmaL %g < sigmaT %g",
			ErrDomain, p[SigmaL], p[SigmaT])
	}
	return nil
}

// ParamsFromSlice copies an optimizer vector into a Params.
func ParamsFromSlice(x []float64) (p Params, err error) {
	if len(x) != NParams {
		return p, fmt.Errorf("%w: %d parameters, want %d",
			ErrShape, len(x), NParams)
	}
	copy(p[:], x)
	return p, nil
}

// Nc returns the photon yield exp(LogNc).
func (p *Params) Nc() float64 { return math.Exp(p[LogNc]) }

func (p Params) String() string {
	return fmt.Sprintf("el %.4f az %.4f core (%.2f, %.2f) smax %.1f "+
		"sigmaL %.1f sigmaT %.2f logNc %.4f",
		p[El], p[Az], p[XCore], p[YCore], p[Height],
		p[SigmaL], p[SigmaT], p[LogNc])
}
