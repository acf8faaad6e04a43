// Public domain.

package m3model_test

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3geom"
	"github.com/soniakeys/model3d/internal/m3model"
)

func TestFreq(t *testing.T) {
	for x := -6.; x <= 6; x += .01 {
		want := .5 * math.Erfc(-x/math.Sqrt2)
		if d := math.Abs(m3model.Freq(x) - want); d > 1e-7 {
			t.Fatal("Freq", x, "error", d)
		}
	}
	if f := m3model.Freq(0); math.Abs(f-.5) > 1e-7 {
		t.Fatal("Freq(0) =", f)
	}
}

func TestAngularDensity(t *testing.T) {
	const eta = .015
	// 2π ∫ I(ε) ε dε, midpoint rule
	const n = 200000
	h := 100 * eta / n
	sum := 0.
	for i := 0; i < n; i++ {
		e := (float64(i) + .5) * h
		sum += m3model.AngularDensity(e, eta) * e
	}
	sum *= 2 * math.Pi * h
	if math.Abs(sum-1) > 1e-4 {
		t.Fatal("angular integral", sum)
	}
	in := m3model.AngularDensity(eta, eta)
	out := m3model.AngularDensity(eta*(1+1e-9), eta)
	if math.Abs(in-out)/in > 1e-8 {
		t.Fatal("discontinuous at eta:", in, out)
	}
	if m3model.AngularDensity(0, eta) != in {
		t.Fatal("plateau not flat")
	}
}

func TestEta(t *testing.T) {
	m := m3model.Model{EtaCoeff: .015}
	if m.Eta(90) != .015 {
		t.Fatal("zenith eta", m.Eta(90))
	}
	want := .015 * math.Sqrt(math.Cos(20*math.Pi/180))
	if math.Abs(m.Eta(70)-want) > 1e-15 {
		t.Fatal("eta at 70°", m.Eta(70), want)
	}
}

func TestDensityDomain(t *testing.T) {
	b := r3.Vector{Z: 1e4}
	s := r3.Vector{Z: 1}
	for _, c := range []struct{ l, t float64 }{{10, 20}, {100, 0}, {100, -1}} {
		if !math.IsNaN(m3model.Density(b, s, s, c.l, c.t, 1e6)) {
			t.Fatal("sigmaL", c.l, "sigmaT", c.t, "not NaN")
		}
	}
}

// Telescope on the axis looking straight up the shower.
func TestDensityOnAxis(t *testing.T) {
	const h, sl, st, nc = 1e4, 3000., 10., 3e6
	s := r3.Vector{Z: 1}
	got := m3model.Density(s.Mul(h), s, s, sl, st, nc)
	want := nc / (2 * math.Pi * st * st) * m3model.Freq(h/sl)
	if math.Abs(got-want)/want > 1e-9 {
		t.Fatal("on axis density", got, "want", want)
	}
}

// vertical shower over a telescope pointed at zenith
func zenithData(t *testing.T, pixX, pixY []float64) *m3data.ShowerModelData {
	d, err := m3data.New(&m3data.Detector{Tel: []m3data.Telescope{
		{PixX: pixX, PixY: pixY},
	}}, 111, .148)
	if err != nil {
		t.Fatal(err)
	}
	d.TelEl[0], d.TelAz[0] = 90, 0
	m3geom.SetupPointing(d)
	m3geom.SetupLineOfSight(d, -1)
	return d
}

func TestExpectedSymmetry(t *testing.T) {
	d := zenithData(t,
		[]float64{0, .3, -.3, 0, 0, .2},
		[]float64{0, 0, 0, .3, -.3, .2})
	par := m3data.Params{90, 0, 0, 0, 1e4, 3000, 10, 15}
	m3geom.Barycenter(d, &par)
	m := m3model.Model{EtaCoeff: .015}
	var mu [6]float64
	for p := range mu {
		mu[p] = m.Expected(d, &par, 0, p)
		if !(mu[p] > 0) {
			t.Fatal("pixel", p, "expected", mu[p])
		}
	}
	for _, p := range []int{2, 3, 4} {
		if math.Abs(mu[p]-mu[1])/mu[1] > 1e-9 {
			t.Fatal("asymmetric signal", mu)
		}
	}
	if !(mu[0] > mu[5] && mu[5] > mu[1]) {
		t.Fatal("signal not falling off axis", mu)
	}
}

func TestExpectedYield(t *testing.T) {
	d := zenithData(t, []float64{.4}, []float64{-.1})
	par := m3data.Params{88, 30, 40, -20, 9000, 2500, 15, 14}
	m3geom.Barycenter(d, &par)
	m := m3model.Model{EtaCoeff: .015}
	m1 := m.Expected(d, &par, 0, 0)
	par[m3data.LogNc] += math.Ln2
	m2 := m.Expected(d, &par, 0, 0)
	if math.Abs(m2/m1-2) > 1e-12 {
		t.Fatal("yield scaling", m1, m2)
	}
	par[m3data.SigmaT] = 3000
	if !math.IsNaN(m.Expected(d, &par, 0, 0)) {
		t.Fatal("sigmaT > sigmaL not NaN")
	}
}
