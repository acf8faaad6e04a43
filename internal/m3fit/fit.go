// Public domain.

// Package m3fit runs the model fit of one event at a time.
//
// A fit passes through the states
//
//	INIT → GET_START_PARAMS → SELECT_PIXELS → CLASSIFY → SKIP_FIT | RUN_FIT → PUBLISH
//
// Any state may go directly to PUBLISH when the event cannot be fit.
// PUBLISH is always reached and produces a Result.
package m3fit

import (
	"errors"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3geom"
	"github.com/soniakeys/model3d/internal/m3like"
	"github.com/soniakeys/model3d/internal/m3model"
	"github.com/soniakeys/model3d/internal/m3solver"
)

// State is a state of the fit.
type State int

const (
	Init State = iota
	GetStartParams
	SelectPixels
	Classify
	SkipFit
	RunFit
	Publish
)

var stateNames = [...]string{
	"INIT",
	"GET_START_PARAMS",
	"SELECT_PIXELS",
	"CLASSIFY",
	"SKIP_FIT",
	"RUN_FIT",
	"PUBLISH",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ErrRejected is wrapped by errors of events failing a quality cut.
var ErrRejected = errors.New("event rejected")

// Result is the published outcome of one event.
type Result struct {
	Num    int
	Solver string

	Start, Par m3data.Params
	Sigma      m3data.Params // 1σ errors of Par, zero if not fit

	StartGoodness, Goodness float64
	StartLL, LL             float64 // -2 ln L
	NPix                    int

	// Good is false if the event failed a quality cut.  Converged is
	// true only if the solver ran and converged.
	Good, Converged bool
	Path            []State
	Status          string
	Err             error

	XOff, YOff float64 // fit direction in the sky basis, deg

	EmissionHeight, EmissionRMS float64 // m, from image pairs
	Depth                       float64 // slant depth of maximum, g/cm²
	RWidth, ErrRWidth           float64 // reduced width, 1e-3

	Model [][]float64 // expected pe per pixel, with Config.Display
}

// Fitter fits events of one detector.  It holds a workspace reused from
// event to event and so is not safe for concurrent use.  Separate
// Fitters are independent.
type Fitter struct {
	Log *log.Logger // state trace when Config.Debug, nil for none

	cfg    *m3conf.Config
	data   *m3data.ShowerModelData
	eval   *m3like.Evaluator
	solver m3solver.NonlinearSolver
}

// New returns a Fitter for detector det.  A nil cfg selects
// m3conf.Default.
func New(det *m3data.Detector, cfg *m3conf.Config) (*Fitter, error) {
	if cfg == nil {
		cfg = m3conf.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := m3data.New(det, cfg.Physics.MirrorArea, cfg.Physics.PixelDiameter)
	if err != nil {
		return nil, err
	}
	s, err := m3solver.New(cfg.Fit.Solver, &cfg.Fit)
	if err != nil {
		return nil, err
	}
	ph := &cfg.Physics
	return &Fitter{
		cfg:  cfg,
		data: d,
		eval: &m3like.Evaluator{
			Data:  d,
			Model: &m3model.Model{EtaCoeff: ph.EtaCoeff},
			PDF: &m3like.PDF{
				ExcessNoise: ph.ExcessNoise,
				GaussLimit:  ph.GaussLimit,
				NStd:        ph.PoissonWindow,
				Floor:       ph.PDFFloor,
				MinPed:      ph.MinPed,
			},
		},
		solver: s,
	}, nil
}

// Fit fits ev from start values estimated from its geometric
// reconstruction and image parameters.
func (f *Fitter) Fit(ev *m3data.Event) *Result {
	return f.run(ev, nil)
}

// FitFrom fits ev from the given start values.
func (f *Fitter) FitFrom(ev *m3data.Event, start m3data.Params) *Result {
	return f.run(ev, &start)
}

// workspace of a single event
type fit struct {
	*Fitter
	ev    *m3data.Event
	start *m3data.Params
	res   *Result
}

func (f *Fitter) run(ev *m3data.Event, start *m3data.Params) *Result {
	w := &fit{
		Fitter: f,
		ev:     ev,
		start:  start,
		res:    &Result{Num: ev.Num, Solver: f.solver.Name()},
	}
	for s := Init; ; s = w.step(s) {
		w.res.Path = append(w.res.Path, s)
		if f.Log != nil && f.cfg.Debug {
			f.Log.Printf("event %d: %v", ev.Num, s)
		}
		if s == Publish {
			w.publish()
			if f.Log != nil && f.cfg.Debug && w.res.Err != nil {
				f.Log.Printf("event %d: %v", ev.Num, w.res.Err)
			}
			return w.res
		}
	}
}

func (w *fit) step(s State) State {
	switch s {
	case Init:
		return w.init()
	case GetStartParams:
		return w.startParams()
	case SelectPixels:
		return w.selectPixels()
	case Classify:
		return w.classify()
	case SkipFit:
		return w.skipFit()
	case RunFit:
		return w.runFit()
	}
	return Publish
}

func (w *fit) reject(format string, a ...interface{}) State {
	w.res.Err = fmt.Errorf("%w: "+format, append([]interface{}{ErrRejected}, a...)...)
	return Publish
}

func (w *fit) fail(err error) State {
	w.res.Err = err
	return Publish
}

func (w *fit) init() State {
	d := w.data
	d.ResetForEvent()
	if len(w.ev.Tel) != d.NTel {
		return w.fail(fmt.Errorf("%w: event has %d telescopes, detector %d",
			m3data.ErrShape, len(w.ev.Tel), d.NTel))
	}
	for t, te := range w.ev.Tel {
		if len(te.Signal) != d.NPix[t] || len(te.PedVar) != d.NPix[t] {
			return w.fail(fmt.Errorf("%w: telescope %d has %d signals, "+
				"%d pedestals, detector %d pixels", m3data.ErrShape, t,
				len(te.Signal), len(te.PedVar), d.NPix[t]))
		}
		d.TelEl[t], d.TelAz[t] = te.El, te.Az
		copy(d.Signal[t], te.Signal)
		copy(d.PedVar[t], te.PedVar)
	}
	fc := &w.cfg.Fit
	if n := w.ev.Reco.NImages; n < fc.MinImages {
		return w.reject("%d images", n)
	}
	if dEl, dAz := m3geom.PointingSpread(d.TelEl, d.TelAz); dEl > fc.MaxPointingSpread ||
		dAz > fc.MaxPointingSpread {
		return w.reject("pointing spread %.2f el, %.2f az", dEl, dAz)
	}
	if !m3geom.SetupPointing(d) {
		return w.reject("no telescope pointing")
	}
	m3geom.SetupLineOfSight(d, w.cfg.Camera.YSign)
	return GetStartParams
}

func (w *fit) startParams() State {
	d := w.data
	if w.start != nil {
		d.Start = *w.start
	} else {
		s, err := w.estimate()
		if err != nil {
			return w.fail(err)
		}
		d.Start = s
	}
	if err := w.checkStart(&d.Start); err != nil {
		return w.fail(err)
	}
	d.Par = d.Start
	return SelectPixels
}

func (w *fit) selectPixels() State {
	d := w.data
	for t, te := range w.ev.Tel {
		for p := range d.Clean[t] {
			d.Clean[t][p] = p < len(te.Image) && te.Image[p] ||
				p < len(te.Border) && te.Border[p]
		}
	}
	if n := d.CountClean(); n < w.cfg.Fit.MinPixels {
		return w.reject("%d pixels selected", n)
	}
	return Classify
}

func (w *fit) classify() State {
	d := w.data
	gof, ll, _, err := w.eval.Goodness(&d.Start)
	if err != nil {
		return w.fail(err)
	}
	d.StartGoodness, d.Goodness = gof, gof
	w.res.StartLL, w.res.LL = ll, ll
	fc := &w.cfg.Fit
	if gof > fc.MaxStartGoodness {
		return w.reject("start goodness %.1f", gof)
	}
	d.Good = true
	if st := d.Start[m3data.SigmaT]; st > fc.GammaSigmaT[0] && st < fc.GammaSigmaT[1] {
		return RunFit
	}
	return SkipFit
}

func (w *fit) skipFit() State {
	w.res.Status = "outside gamma band, not fit"
	return Publish
}

func (w *fit) runFit() State {
	d := w.data
	fc := &w.cfg.Fit
	d.Step = m3like.Steps(&d.Start, &fc.StepFrac, &fc.StepMin)
	lo, hi := w.bounds()
	params := func(x []float64) (m3data.Params, error) {
		p, err := m3data.ParamsFromSlice(x)
		if err != nil {
			return p, err
		}
		return p, p.Validate()
	}
	prob := &m3solver.Problem{
		Start: append([]float64{}, d.Start[:]...),
		Lower: lo[:],
		Upper: hi[:],
		Objective: func(x []float64) float64 {
			p, err := params(x)
			if err != nil {
				return math.Inf(1)
			}
			ll, err := w.eval.LogLikelihood(&p)
			if err != nil {
				return math.Inf(1)
			}
			return ll
		},
		NResiduals: m3like.NResiduals(d.NClean),
		Residuals: func(dst, x []float64) error {
			p, err := params(x)
			if err != nil {
				return err
			}
			return w.eval.Residuals(dst, &p)
		},
		Jacobian: func(dst *mat.Dense, x []float64) error {
			p, err := params(x)
			if err != nil {
				return err
			}
			return w.eval.Jacobian(dst, &p, &d.Step, nil, w.eval.Residuals)
		},
	}
	r, err := w.solver.Minimize(prob)
	if err != nil {
		return w.fail(fmt.Errorf("%s: %w", w.solver.Name(), err))
	}
	w.res.Status = r.Status
	if !r.Converged {
		return Publish
	}
	p, err := params(r.X)
	if err != nil {
		return w.fail(err)
	}
	p[m3data.Az] = m3geom.WrapDeg(p[m3data.Az])
	d.Par = p
	d.Converged = true
	copy(w.res.Sigma[:], r.Err)
	return Publish
}

// bounds returns fit bounds, relative to the start for direction and core.
func (w *fit) bounds() (lo, hi m3data.Params) {
	fc := &w.cfg.Fit
	s := &w.data.Start
	lo[m3data.El] = math.Max(0, s[m3data.El]-fc.ElRange)
	hi[m3data.El] = math.Min(90, s[m3data.El]+fc.ElRange)
	lo[m3data.Az], hi[m3data.Az] = s[m3data.Az]-fc.AzRange, s[m3data.Az]+fc.AzRange
	for _, k := range []int{m3data.XCore, m3data.YCore} {
		lo[k], hi[k] = s[k]-fc.CoreRange, s[k]+fc.CoreRange
	}
	for _, b := range []struct {
		k  int
		lu [2]float64
	}{
		{m3data.Height, fc.Height},
		{m3data.SigmaL, fc.SigmaL},
		{m3data.SigmaT, fc.SigmaT},
		{m3data.LogNc, fc.LogNc},
	} {
		lo[b.k], hi[b.k] = b.lu[0], b.lu[1]
	}
	return
}

func (w *fit) publish() {
	d := w.data
	r := w.res
	r.Start, r.Par = d.Start, d.Par
	r.NPix = d.NClean
	r.Good, r.Converged = d.Good, d.Converged
	r.StartGoodness, r.Goodness = d.StartGoodness, d.Goodness
	if !d.Good {
		return
	}
	if d.Converged {
		gof, ll, _, err := w.eval.Goodness(&d.Par)
		if err != nil {
			r.Err = err
		}
		d.Goodness = gof
		r.Goodness, r.LL = gof, ll
	}
	axis := m3geom.AxisVector(d.Par[m3data.El], d.Par[m3data.Az])
	r.XOff, r.YOff, _ = m3geom.DirectionToOffset(&d.Basis, axis,
		w.cfg.Camera.OffsetYSign)
	a := &w.cfg.Physics.Atmosphere
	h := d.Par[m3data.Height]
	r.Depth = SlantDepth(a, h, d.Par[m3data.El])
	r.RWidth = ReducedWidth(a, d.Par[m3data.SigmaT], h, d.Par[m3data.El])
	r.ErrRWidth = ReducedWidth(a, r.Sigma[m3data.SigmaT], h, d.Par[m3data.El])
	if w.cfg.Display {
		r.Model = w.model(&d.Par)
	}
}

// model returns expected signal of every pixel for par.
func (w *fit) model(par *m3data.Params) [][]float64 {
	d := w.data
	m3geom.Barycenter(d, par)
	m := make([][]float64, d.NTel)
	for t := range m {
		m[t] = make([]float64, d.NPix[t])
		for p := range m[t] {
			if v := w.eval.Model.Expected(d, par, t, p); !math.IsNaN(v) {
				m[t][p] = v
			}
		}
	}
	return m
}
