// Public domain.

package m3solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// TwoStage minimizes in the manner of Minuit:  bounded parameters are
// mapped to unbounded internal ones by x = lo + (hi-lo)(sin y + 1)/2, an
// optional derivative free Nelder-Mead stage searches a subset of
// parameters, then a quasi-Newton BFGS stage with central difference
// gradients searches all free parameters.
//
// The fit is converged when the estimated distance to the minimum,
// edm = ½gᵀH⁻¹g in units of -2 ln L, is below 0.002·Tolerance.  Errors
// come from the inverse of the numerical Hessian.
type TwoStage struct {
	Stage1    *Stage1 // nil to skip
	MaxCalls  int     // objective evaluations over all restarts, gradients included
	Tolerance float64
}

// Stage1 is the optional simplex stage.  Parameters not Free are held at
// their start values; Free ones are searched within Lower, Upper.
type Stage1 struct {
	Free         []bool
	Lower, Upper []float64
	Calls        int
}

const (
	gradStep = 1e-6 // internal parameter units
	hessStep = 1e-4
	restarts = 3
)

func (s *TwoStage) Name() string { return "twostage" }

// Minimize implements NonlinearSolver.
func (s *TwoStage) Minimize(p *Problem) (*Result, error) {
	if err := p.check(false); err != nil {
		return nil, err
	}
	n := len(p.Start)
	calls := 0
	obj := func(x []float64) float64 {
		calls++
		f := p.Objective(x)
		if math.IsNaN(f) {
			return math.Inf(1)
		}
		return f
	}
	x := p.clampStart()

	if st := s.Stage1; st != nil {
		if len(st.Free) != n || len(st.Lower) != n || len(st.Upper) != n {
			return nil, fmt.Errorf("%w: stage 1 set for %d parameters, have %d",
				ErrProblem, len(st.Free), n)
		}
		free := make([]bool, n)
		lo := append([]float64{}, p.Lower...)
		hi := append([]float64{}, p.Upper...)
		for i := range free {
			if free[i] = st.Free[i] && !p.fixed(i); free[i] {
				lo[i], hi[i] = st.Lower[i], st.Upper[i]
			}
		}
		b := newBounded(x, lo, hi, free)
		r, _ := optimize.Minimize(optimize.Problem{Func: b.wrap(obj)},
			b.toY(x), &optimize.Settings{
				FuncEvaluations: st.Calls,
				Converger: &optimize.FunctionConverge{
					Absolute: 1e-3, Iterations: 20},
			}, &optimize.NelderMead{})
		// simplex result feeds stage 2, within stage 2 bounds
		if r != nil && !math.IsInf(r.F, 0) {
			b.toX(x, r.X)
			for i := range x {
				x[i] = math.Max(p.Lower[i], math.Min(p.Upper[i], x[i]))
			}
		}
	}

	free := make([]bool, n)
	for i := range free {
		free[i] = !p.fixed(i)
	}
	b := newBounded(x, p.Lower, p.Upper, free)
	fy := b.wrap(obj)
	grad := func(g, y []float64) {
		fd.Gradient(g, fy, y, &fd.Settings{Formula: fd.Central, Step: gradStep})
	}
	y := b.toY(x)
	res := &Result{X: make([]float64, n), Err: make([]float64, n)}
	if len(y) == 0 {
		copy(res.X, x)
		res.F = obj(x)
		res.Converged = true
		res.Status = "all parameters fixed"
		res.Evaluations = calls
		return res, nil
	}
	res.F = math.Inf(1)
	var edm float64
	var yErr []float64
	// gradient calls count against MaxCalls too
	budget := func() (optimize.Status, error) {
		if calls >= s.MaxCalls {
			return optimize.FunctionEvaluationLimit, nil
		}
		return optimize.NotTerminated, nil
	}
	for try := 0; try < restarts && calls < s.MaxCalls; try++ {
		r, err := optimize.Minimize(optimize.Problem{Func: fy, Grad: grad, Status: budget},
			y, &optimize.Settings{
				FuncEvaluations: s.MaxCalls - calls,
				Converger: &optimize.FunctionConverge{
					Absolute: 1e-10, Iterations: 10},
			}, &optimize.BFGS{})
		if r == nil {
			res.Status = fmt.Sprint(err)
			break
		}
		res.Iterations += r.MajorIterations
		if r.F <= res.F {
			res.F = r.F
			copy(y, r.X)
		}
		res.Status = r.Status.String()
		if err != nil {
			res.Status += ": " + err.Error()
		}
		var ok bool
		if edm, yErr, ok = s.curvature(fy, y); ok && edm < .002*s.Tolerance {
			res.Converged = true
			break
		}
		if r.Status == optimize.FunctionEvaluationLimit ||
			r.Status == optimize.IterationLimit {
			break
		}
	}
	res.Status = fmt.Sprintf("%s, edm %.3g", res.Status, edm)
	b.toX(res.X, y)
	dxdy := b.dxdy(y)
	for i := range res.Err {
		res.Err[i] = math.NaN()
	}
	for j, i := range b.idx {
		if yErr != nil {
			res.Err[i] = yErr[j] * math.Abs(dxdy[j])
		}
	}
	for i := range res.Err {
		if !free[i] {
			res.Err[i] = 0
		}
	}
	res.Evaluations = calls
	return res, nil
}

// curvature returns the estimated distance to the minimum and parameter
// errors in internal units.  ok is false if the Hessian is not positive
// definite.
func (s *TwoStage) curvature(f func([]float64) float64, y []float64) (edm float64, yErr []float64, ok bool) {
	m := len(y)
	h := mat.NewSymDense(m, nil)
	fd.Hessian(h, f, y, &fd.Settings{Formula: fd.Central, Step: hessStep})
	var chol mat.Cholesky
	if !chol.Factorize(h) {
		return math.Inf(1), nil, false
	}
	var hInv mat.SymDense
	if err := chol.InverseTo(&hInv); err != nil {
		return math.Inf(1), nil, false
	}
	g := mat.NewVecDense(m, fd.Gradient(nil, f, y,
		&fd.Settings{Formula: fd.Central, Step: gradStep}))
	var hg mat.VecDense
	hg.MulVec(&hInv, g)
	edm = .5 * mat.Dot(g, &hg)
	// covariance of -2 ln L is 2H⁻¹
	yErr = make([]float64, m)
	for j := range yErr {
		yErr[j] = math.Sqrt(2 * hInv.At(j, j))
	}
	return edm, yErr, !math.IsNaN(edm)
}

// bounded maps free parameters with bounds to unbounded internal values.
type bounded struct {
	x0     []float64 // values of parameters not free
	idx    []int     // indexes of free parameters
	lo, hi []float64 // bounds of free parameters
	x      []float64 // scratch
}

func newBounded(x0, lo, hi []float64, free []bool) *bounded {
	b := &bounded{x0: append([]float64{}, x0...), x: make([]float64, len(x0))}
	for i, f := range free {
		if f {
			b.idx = append(b.idx, i)
			b.lo = append(b.lo, lo[i])
			b.hi = append(b.hi, hi[i])
		}
	}
	return b
}

func (b *bounded) limited(j int) bool { return !math.IsInf(b.lo[j], 0) }

func (b *bounded) toX(dst, y []float64) {
	copy(dst, b.x0)
	for j, i := range b.idx {
		if b.limited(j) {
			dst[i] = b.lo[j] + (b.hi[j]-b.lo[j])*(math.Sin(y[j])+1)/2
		} else {
			dst[i] = y[j]
		}
	}
}

func (b *bounded) toY(x []float64) []float64 {
	y := make([]float64, len(b.idx))
	for j, i := range b.idx {
		if !b.limited(j) {
			y[j] = x[i]
			continue
		}
		// values on a bound are pulled inside to keep a nonzero gradient
		t := 2*(x[i]-b.lo[j])/(b.hi[j]-b.lo[j]) - 1
		y[j] = math.Asin(math.Max(-1+1e-8, math.Min(1-1e-8, t)))
	}
	return y
}

func (b *bounded) dxdy(y []float64) []float64 {
	d := make([]float64, len(y))
	for j := range y {
		if b.limited(j) {
			d[j] = (b.hi[j] - b.lo[j]) / 2 * math.Cos(y[j])
		} else {
			d[j] = 1
		}
	}
	return d
}

// wrap returns f as a function of internal parameters.
func (b *bounded) wrap(f func([]float64) float64) func([]float64) float64 {
	return func(y []float64) float64 {
		b.toX(b.x, y)
		return f(b.x)
	}
}
