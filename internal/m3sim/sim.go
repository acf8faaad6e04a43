// Public domain.

// Package m3sim generates synthetic events from the shower model itself.
//
// Expected pixel signals come from m3model.  With noise enabled each
// pixel draws a Poisson photo-electron count which is smeared by pedestal
// and single photo-electron noise.  Images are cleaned with two
// thresholds, and Hillas parameters and a smeared geometric
// reconstruction are computed so events can be fit from estimated start
// values.
package m3sim

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3geom"
	"github.com/soniakeys/model3d/internal/m3model"
)

// Generator makes events for one detector.  The same seed always gives
// the same sequence of events.
type Generator struct {
	Ped    float64 // pedestal rms, pe
	Noise  bool
	Image  float64 // cleaning thresholds, multiples of Ped
	Border float64

	// rms smearing of the geometric reconstruction
	DirSmear  float64 // deg
	CoreSmear float64 // m

	T0 time.Time // time of event 0, events are 1s apart

	cfg   *m3conf.Config
	data  *m3data.ShowerModelData
	model *m3model.Model
	src   *rand.PCGSource
}

// New returns a generator with 1 pe pedestals, noise on, 5/2.5 cleaning
// and no reconstruction smearing.
func New(det *m3data.Detector, cfg *m3conf.Config, seed uint64) (*Generator, error) {
	if cfg == nil {
		cfg = m3conf.Default()
	}
	d, err := m3data.New(det, cfg.Physics.MirrorArea, cfg.Physics.PixelDiameter)
	if err != nil {
		return nil, err
	}
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &Generator{
		Ped:    1,
		Noise:  true,
		Image:  5,
		Border: 2.5,
		T0:     time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		cfg:    cfg,
		data:   d,
		model:  &m3model.Model{EtaCoeff: cfg.Physics.EtaCoeff},
		src:    src,
	}, nil
}

// Event returns event num of a shower with parameters truth seen with all
// telescopes pointed at el, az (deg, azimuth from north).
func (g *Generator) Event(num int, el, az float64, truth m3data.Params) (*m3data.Event, error) {
	if err := truth.Validate(); err != nil {
		return nil, err
	}
	d := g.data
	d.ResetForEvent()
	for t := range d.TelEl {
		d.TelEl[t], d.TelAz[t] = el, az
	}
	m3geom.SetupPointing(d)
	m3geom.SetupLineOfSight(d, g.cfg.Camera.YSign)
	m3geom.Barycenter(d, &truth)

	ev := &m3data.Event{
		Num:   num,
		Time:  g.T0.Add(time.Duration(num) * time.Second),
		Tel:   make([]m3data.TelEvent, d.NTel),
		Truth: &truth,
	}
	for t := range ev.Tel {
		te := &ev.Tel[t]
		te.El, te.Az = el, az
		n := d.NPix[t]
		te.Signal = make([]float64, n)
		te.PedVar = make([]float64, n)
		te.Image = make([]bool, n)
		te.Border = make([]bool, n)
		for p := 0; p < n; p++ {
			m := g.model.Expected(d, &truth, t, p)
			te.Signal[p] = g.signal(m)
			te.PedVar[p] = g.Ped
			te.Image[p] = te.Signal[p] > g.Image*g.Ped
			te.Border[p] = !te.Image[p] && te.Signal[p] > g.Border*g.Ped
		}
		te.Hillas = hillas(d.CamX[t], d.CamY[t], te.Signal, te.Image, te.Border)
		if te.Hillas.Size > 0 {
			ev.Reco.NImages++
		}
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: g.src}
	axis := m3geom.AxisVector(truth[m3data.El], truth[m3data.Az])
	x, y, _ := m3geom.DirectionToOffset(&d.Basis, axis, g.cfg.Camera.OffsetYSign)
	ev.Reco.XOff = x + g.DirSmear*norm.Rand()
	ev.Reco.YOff = y + g.DirSmear*norm.Rand()
	ev.Reco.XCore = truth[m3data.XCore] + g.CoreSmear*norm.Rand()
	ev.Reco.YCore = truth[m3data.YCore] + g.CoreSmear*norm.Rand()
	return ev, nil
}

// signal draws a measured charge for expected charge m.
func (g *Generator) signal(m float64) float64 {
	if !g.Noise {
		return m
	}
	n := 0.
	if m > 0 {
		n = distuv.Poisson{Lambda: m, Src: g.src}.Rand()
	}
	x := g.cfg.Physics.ExcessNoise
	return distuv.Normal{
		Mu:    n,
		Sigma: math.Sqrt(g.Ped*g.Ped + n*x*x),
		Src:   g.src,
	}.Rand()
}

// hillas computes second moment image parameters over image and border
// pixels.  Fewer than three pixels or no positive charge give a zero
// Hillas.
func hillas(x, y, q []float64, image, border []bool) (h m3data.Hillas) {
	var px, py, w []float64
	for p := range q {
		if (image[p] || border[p]) && q[p] > 0 {
			px = append(px, x[p])
			py = append(py, y[p])
			w = append(w, q[p])
		}
	}
	if len(w) < 3 {
		return
	}
	h.CenX = stat.Mean(px, w)
	h.CenY = stat.Mean(py, w)
	for _, v := range w {
		h.Size += v
	}
	// population moments
	f := (h.Size - 1) / h.Size
	cov := mat.NewSymDense(2, []float64{
		stat.Variance(px, w) * f, stat.Covariance(px, py, w) * f,
		stat.Covariance(px, py, w) * f, stat.Variance(py, w) * f,
	})
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return m3data.Hillas{}
	}
	vals := eig.Values(nil) // ascending
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	h.Width = math.Sqrt(math.Max(vals[0], 0))
	h.Length = math.Sqrt(math.Max(vals[1], 0))
	h.CosPhi, h.SinPhi = vecs.At(0, 1), vecs.At(1, 1)
	return
}
