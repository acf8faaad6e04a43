// Public domain.

// Package m3solver minimizes -2 ln L of the shower model over bounded
// parameters.  Back ends implement NonlinearSolver and see the problem
// only through the closures of a Problem, so each fit carries its own
// context.
package m3solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3data"
)

// Problem is a bounded minimization problem.
//
// Objective is required by every solver.  Least squares solvers also need
// Residuals, with NResiduals values whose sum of squares is Objective up to
// a constant, and Jacobian, the NResiduals × len(Start) derivative matrix
// of the residuals.
type Problem struct {
	Start        []float64
	Lower, Upper []float64 // both finite or both infinite per parameter
	Fixed        []bool    // optional

	Objective func(x []float64) float64

	NResiduals int
	Residuals  func(dst, x []float64) error
	Jacobian   func(dst *mat.Dense, x []float64) error
}

// Result of a minimization.
type Result struct {
	X           []float64
	Err         []float64 // 1σ, Δ(-2 ln L) = 1; NaN if not available
	F           float64   // objective at X
	Converged   bool
	Status      string
	Iterations  int
	Evaluations int
}

// NonlinearSolver is a minimization back end.
type NonlinearSolver interface {
	Name() string
	Minimize(p *Problem) (*Result, error)
}

var (
	// ErrUnknownSolver is returned by New for an unrecognized name.
	ErrUnknownSolver = errors.New("unknown solver")
	// ErrProblem is returned for an inconsistent Problem.
	ErrProblem = errors.New("invalid problem")
)

// New returns the named back end configured from f:
//
//	twostage  optional Nelder-Mead stage then bounded BFGS
//	lm        bounded Levenberg-Marquardt
func New(name string, f *m3conf.Fit) (NonlinearSolver, error) {
	switch name {
	case "twostage":
		s := &TwoStage{
			MaxCalls:  f.MaxCalls,
			Tolerance: f.Tolerance,
		}
		if f.Simplex.Enable {
			s.Stage1 = &Stage1{
				Free:  make([]bool, m3data.NParams),
				Lower: make([]float64, m3data.NParams),
				Upper: make([]float64, m3data.NParams),
				Calls: f.Simplex.Calls,
			}
			for _, b := range []struct {
				k  int
				lu [2]float64
			}{
				{m3data.Height, f.Simplex.Height},
				{m3data.SigmaT, f.Simplex.SigmaT},
				{m3data.LogNc, f.Simplex.LogNc},
			} {
				s.Stage1.Free[b.k] = true
				s.Stage1.Lower[b.k], s.Stage1.Upper[b.k] = b.lu[0], b.lu[1]
			}
		}
		return s, nil
	case "lm":
		return &LM{
			MaxIterations: f.MaxIterations,
			StepTolerance: f.StepTolerance,
			Tolerance:     f.Tolerance,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, name)
}

func (p *Problem) check(lsq bool) error {
	n := len(p.Start)
	switch {
	case n == 0:
		return fmt.Errorf("%w: no parameters", ErrProblem)
	case len(p.Lower) != n || len(p.Upper) != n:
		return fmt.Errorf("%w: %d parameters, %d lower, %d upper bounds",
			ErrProblem, n, len(p.Lower), len(p.Upper))
	case p.Fixed != nil && len(p.Fixed) != n:
		return fmt.Errorf("%w: %d fixed flags", ErrProblem, len(p.Fixed))
	case p.Objective == nil:
		return fmt.Errorf("%w: no objective", ErrProblem)
	case lsq && (p.Residuals == nil || p.Jacobian == nil || p.NResiduals < n):
		return fmt.Errorf("%w: least squares needs residuals and jacobian, "+
			"%d residuals for %d parameters", ErrProblem, p.NResiduals, n)
	}
	for i := range p.Start {
		lo, hi := p.Lower[i], p.Upper[i]
		if math.IsInf(lo, -1) != math.IsInf(hi, 1) || !(lo <= hi) {
			return fmt.Errorf("%w: parameter %d bounds [%g, %g]",
				ErrProblem, i, lo, hi)
		}
	}
	return nil
}

func (p *Problem) fixed(i int) bool {
	return p.Fixed != nil && p.Fixed[i] || p.Lower[i] == p.Upper[i]
}

// clampStart copies Start, clamped into bounds.
func (p *Problem) clampStart() []float64 {
	x := append([]float64{}, p.Start...)
	for i := range x {
		x[i] = math.Max(p.Lower[i], math.Min(p.Upper[i], x[i]))
	}
	return x
}
