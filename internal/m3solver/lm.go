// Public domain.

package m3solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LM is a bounded Levenberg-Marquardt least squares solver.
//
// Each trial step solves (JᵀJ + λ·diag(JᵀJ))δ = -Jᵀr and is clamped into
// bounds.  An accepted step divides λ by 3, a rejected one multiplies it
// by a growing factor.
//
// The fit is converged when the estimated distance to the minimum,
// edm = gᵀ(JᵀJ)⁻¹g with g = Jᵀr, is below 0.002·Tolerance, or when a step
// taken with damping λ ≤ 1 moves every parameter by less than
// StepTolerance·(1+|x|).  A zero Tolerance or StepTolerance disables that
// test.  Heavily damped steps are short whether or not the minimum is
// near, so they never count as converged, and a fit where no step
// decreases the sum of squares at any damping is not converged.
//
// Errors are from the covariance (JᵀJ)⁻¹ at the solution.  With Σr² equal
// to -2 ln L plus a constant these are the Δ(-2 ln L) = 1 errors, and edm
// is in units of -2 ln L.
type LM struct {
	MaxIterations int
	StepTolerance float64
	Tolerance     float64
}

const (
	lambda0    = 1e-3
	lambdaMin  = 1e-15
	lambdaMax  = 1e16
	lambdaStep = 1 // largest damping of a step the step test accepts
)

func (s *LM) Name() string { return "lm" }

// Minimize implements NonlinearSolver.
func (s *LM) Minimize(p *Problem) (*Result, error) {
	if err := p.check(true); err != nil {
		return nil, err
	}
	n, m := len(p.Start), p.NResiduals
	free := make([]bool, n)
	for i := range free {
		free[i] = !p.fixed(i)
	}
	x := p.clampStart()
	r := make([]float64, m)
	if err := p.Residuals(r, x); err != nil {
		return nil, err
	}
	res := &Result{X: x, Err: make([]float64, n), Evaluations: 1}
	cost := floats.Dot(r, r)

	jac := mat.NewDense(m, n, nil)
	var jtj mat.SymDense
	g := mat.NewVecDense(n, nil)
	// normal equations at x, fixed parameters get zero columns
	normal := func() (bool, error) {
		if err := p.Jacobian(jac, x); err != nil {
			return false, err
		}
		for j, f := range free {
			if !f {
				for k := 0; k < m; k++ {
					jac.Set(k, j, 0)
				}
			}
		}
		jtj.SymOuterK(1, jac.T())
		g.MulVec(jac.T(), mat.NewVecDense(m, r))
		for j := 0; j < n; j++ {
			if math.IsNaN(g.AtVec(j)) || math.IsInf(g.AtVec(j), 0) {
				return false, nil
			}
		}
		return true, nil
	}
	ok, err := normal()
	if err != nil {
		return nil, err
	}
	if !ok {
		res.Status = "jacobian not finite"
		res.F = p.Objective(x)
		return res, nil
	}

	a := mat.NewSymDense(n, nil)
	delta := mat.NewVecDense(n, nil)
	var chol mat.Cholesky
	xNew := make([]float64, n)
	rNew := make([]float64, m)
	lambda, nu := lambda0, 2.
	e := edm(a, &jtj, free, g)
	res.Status = "iteration limit"
	if e < .002*s.Tolerance {
		res.Converged = true
		res.Status = "edm below tolerance"
	}
iterate:
	for !res.Converged && res.Iterations < s.MaxIterations {
		res.Iterations++
		for {
			damp(a, &jtj, free, lambda)
			step := chol.Factorize(a) && chol.SolveVecTo(delta, g) == nil
			if step {
				for j := range xNew {
					xNew[j] = math.Max(p.Lower[j],
						math.Min(p.Upper[j], x[j]-delta.AtVec(j)))
				}
				res.Evaluations++
				step = p.Residuals(rNew, xNew) == nil
			}
			var costNew float64
			if step {
				costNew = floats.Dot(rNew, rNew)
				step = costNew < cost
			}
			if step {
				small := lambda <= lambdaStep
				for j := range x {
					if !(math.Abs(xNew[j]-x[j]) < s.StepTolerance*(1+math.Abs(x[j]))) {
						small = false
					}
				}
				copy(x, xNew)
				r, rNew = rNew, r
				cost = costNew
				lambda = math.Max(lambda/3, lambdaMin)
				nu = 2
				if ok, err = normal(); err != nil {
					return nil, err
				}
				if !ok {
					res.Status = "jacobian not finite"
					break iterate
				}
				switch e = edm(a, &jtj, free, g); {
				case e < .002*s.Tolerance:
					res.Converged = true
					res.Status = "edm below tolerance"
				case small:
					res.Converged = true
					res.Status = "step below tolerance"
				}
				break
			}
			lambda *= nu
			nu *= 2
			if lambda > lambdaMax {
				res.Status = "no further decrease"
				break iterate
			}
		}
	}
	res.Status = fmt.Sprintf("%s, edm %.3g", res.Status, e)
	res.F = p.Objective(x)

	// covariance
	damp(a, &jtj, free, 0)
	var cov mat.SymDense
	if !chol.Factorize(a) || chol.InverseTo(&cov) != nil {
		for j := range res.Err {
			res.Err[j] = math.NaN()
		}
	} else {
		for j, f := range free {
			if f {
				res.Err[j] = math.Sqrt(cov.At(j, j))
			}
		}
	}
	return res, nil
}

// damp sets a to jtj with Marquardt damping on the diagonal.  Rows of
// fixed parameters are identity rows.
func damp(a *mat.SymDense, jtj *mat.SymDense, free []bool, lambda float64) {
	n := len(free)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a.SetSym(i, j, jtj.At(i, j))
		}
		if !free[i] {
			a.SetSym(i, i, 1)
			continue
		}
		d := jtj.At(i, i)
		a.SetSym(i, i, d+lambda*math.Max(d, 1e-30))
	}
}

// edm returns gᵀ(JᵀJ)⁻¹g over the free parameters, or +Inf where JᵀJ is
// singular.
func edm(a, jtj *mat.SymDense, free []bool, g *mat.VecDense) float64 {
	damp(a, jtj, free, 0)
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return math.Inf(1)
	}
	var h mat.VecDense
	if chol.SolveVecTo(&h, g) != nil {
		return math.Inf(1)
	}
	return mat.Dot(g, &h)
}
