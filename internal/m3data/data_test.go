// Public domain.

package m3data_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/soniakeys/model3d/internal/m3data"
)

var normalizeTestCases = []r3.Vector{
	{X: 1},
	{X: 3, Y: 4},
	{X: -1e-100, Y: 2e-100, Z: 5e-101},
	{X: 1e150, Y: -1e150, Z: 1e150},
	{X: .1, Y: .2, Z: -.3},
}

func TestNormalize(t *testing.T) {
	for _, c := range normalizeTestCases {
		v := c
		m3data.Normalize(&v)
		if math.Abs(v.Norm()-1) > 1e-15 {
			t.Fatal("norm of", c, "=", v.Norm())
		}
		if v.Dot(c) <= 0 {
			t.Fatal("direction of", c, "changed")
		}
	}
	var z r3.Vector
	m3data.Normalize(&z)
	if z != (r3.Vector{}) {
		t.Fatal("zero vector changed to", z)
	}
}

func TestCrossDot(t *testing.T) {
	x := r3.Vector{X: 1}
	y := r3.Vector{Y: 1}
	if c := m3data.Cross(x, y); c != (r3.Vector{Z: 1}) {
		t.Fatal("x × y =", c)
	}
	if d := m3data.Dot(x, y); d != 0 {
		t.Fatal("x · y =", d)
	}
}

func TestNewShape(t *testing.T) {
	if _, err := m3data.NewShape(2, []int{3}); !errors.Is(err, m3data.ErrShape) {
		t.Fatal("mismatched counts:", err)
	}
	if _, err := m3data.NewShape(2, []int{3, 0}); !errors.Is(err, m3data.ErrShape) {
		t.Fatal("zero pixels:", err)
	}
	d, err := m3data.NewShape(2, []int{3, 5})
	if err != nil {
		t.Fatal(err)
	}
	for t2, n := range []int{3, 5} {
		for _, l := range []int{len(d.LOS[t2]), len(d.CosTheta[t2]),
			len(d.Signal[t2]), len(d.PedVar[t2]), len(d.Clean[t2]),
			len(d.Omega[t2]), len(d.CamX[t2]), len(d.CamY[t2])} {
			if l != n {
				t.Fatal("telescope", t2, "array length", l, "want", n)
			}
		}
	}
}

func testDetector() *m3data.Detector {
	return &m3data.Detector{Tel: []m3data.Telescope{
		{Pos: r3.Vector{X: 100}, PixX: []float64{0, .15}, PixY: []float64{0, 0}},
		{Pos: r3.Vector{Y: 100}, MirrorArea: 50, PixelDiameter: .1,
			PixX: []float64{0}, PixY: []float64{.1}},
	}}
}

func TestNew(t *testing.T) {
	d, err := m3data.New(testDetector(), 111, .148)
	if err != nil {
		t.Fatal(err)
	}
	if d.MirrorArea[0] != 111 || d.MirrorArea[1] != 50 {
		t.Fatal("mirror areas", d.MirrorArea)
	}
	r := .074 * math.Pi / 180
	if math.Abs(d.Omega[0][1]-math.Pi*r*r) > 1e-20 {
		t.Fatal("solid angle", d.Omega[0][1])
	}
	bad := testDetector()
	bad.Tel[0].PixY = bad.Tel[0].PixY[:1]
	if _, err := m3data.New(bad, 111, .148); !errors.Is(err, m3data.ErrShape) {
		t.Fatal("ragged pixel coordinates:", err)
	}
	if _, err := m3data.New(testDetector(), 0, .148); !errors.Is(err, m3data.ErrShape) {
		t.Fatal("zero mirror area:", err)
	}
}

func TestResetForEvent(t *testing.T) {
	d, err := m3data.New(testDetector(), 111, .148)
	if err != nil {
		t.Fatal(err)
	}
	omega := d.Omega[1][0]
	d.Signal[0][1] = 40
	d.Clean[0][1] = true
	d.LOS[1][0] = r3.Vector{Z: 1}
	d.Par[m3data.Height] = 1e4
	d.Good = true
	d.Axis = r3.Vector{Z: 1}
	d.ResetForEvent()
	switch {
	case d.Signal[0][1] != 0, d.Clean[0][1], d.LOS[1][0] != (r3.Vector{}),
		d.Par != (m3data.Params{}), d.Good, d.Axis != (r3.Vector{}):
		t.Fatal("per-event state survived reset")
	case d.Omega[1][0] != omega, d.MirrorArea[1] != 50,
		d.TelPos[0] != (r3.Vector{X: 100}):
		t.Fatal("detector constants lost in reset")
	}
	if d.CountClean() != 0 {
		t.Fatal("clean pixels after reset")
	}
}

var validateTestCases = []struct {
	p  m3data.Params
	ok bool
}{
	{m3data.Params{70, 180, 0, 0, 1e4, 3000, 10, 15}, true},
	{m3data.Params{70, 180, 0, 0, 1e4, 10, 10, 15}, true},
	{m3data.Params{70, 180, 0, 0, 1e4, 9, 10, 15}, false},
	{m3data.Params{70, 180, 0, 0, 1e4, 3000, 0, 15}, false},
	{m3data.Params{70, 180, 0, 0, 0, 3000, 10, 15}, false},
	{m3data.Params{math.NaN(), 180, 0, 0, 1e4, 3000, 10, 15}, false},
	{m3data.Params{70, 180, math.Inf(1), 0, 1e4, 3000, 10, 15}, false},
}

func TestValidate(t *testing.T) {
	for _, c := range validateTestCases {
		err := c.p.Validate()
		if (err == nil) != c.ok {
			t.Fatal(c.p, "valid:", err == nil, "want", c.ok)
		}
		if err != nil && !errors.Is(err, m3data.ErrDomain) {
			t.Fatal("error not ErrDomain:", err)
		}
	}
}

func TestParamsFromSlice(t *testing.T) {
	if _, err := m3data.ParamsFromSlice(make([]float64, 7)); err == nil {
		t.Fatal("accepted 7 parameters")
	}
	p, err := m3data.ParamsFromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	if err != nil {
		t.Fatal(err)
	}
	if p[m3data.LogNc] != 8 {
		t.Fatal(p)
	}
}

func ExampleParams_String() {
	p := m3data.Params{70, 180, 0, 0, 1e4, 3000, 10, 15}
	fmt.Println(p)
	// Output:
	// el 70.0000 az 180.0000 core (0.00, 0.00) smax 10000.0 sigmaL 3000.0 sigmaT 10.00 logNc 15.0000
}
