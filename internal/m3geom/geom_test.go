// Public domain.

package m3geom_test

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3geom"
)

var pointingGrid = []struct{ el, az float64 }{
	{1, 0}, {1, 135}, {10, 90}, {30, 315}, {45, 180}, {70, 270},
	{70, 0}, {85, 200}, {89.9, 45}, {89.9999, 10}, {90, 0}, {90, 250},
}

func TestBasis(t *testing.T) {
	for _, c := range pointingGrid {
		b := m3geom.NewBasis(c.el, c.az)
		for _, v := range []r3.Vector{b.X, b.Y, b.Z} {
			if math.Abs(v.Norm()-1) > 1e-12 {
				t.Fatal(c, "basis vector norm", v.Norm())
			}
		}
		if math.Abs(b.X.Dot(b.Y)) > 1e-12 || math.Abs(b.Y.Dot(b.Z)) > 1e-12 ||
			math.Abs(b.Z.Dot(b.X)) > 1e-12 {
			t.Fatal(c, "basis not orthogonal", b)
		}
		// right handed
		if !near(b.X.Cross(b.Y), b.Z) {
			t.Fatal(c, "X × Y != Z", b)
		}
		// X horizontal, Y toward the zenith side
		if math.Abs(b.X.Z) > 1e-12 || (c.el < 90 && b.Y.Z <= 0) {
			t.Fatal(c, "basis orientation", b)
		}
	}
}

func TestBasisZenithLimit(t *testing.T) {
	z := m3geom.NewBasis(90, 250)
	n := m3geom.NewBasis(90-1e-9, 250)
	if !near(z.X, n.X) || !near(z.Y, n.Y) {
		t.Fatal("zenith basis discontinuous:", z, n)
	}
}

func near(a, b r3.Vector) bool { return a.Sub(b).Norm() < 1e-9 }

func sep(a, b r3.Vector) float64 {
	return math.Atan2(a.Cross(b).Norm(), a.Dot(b)) * 180 / math.Pi
}

// sky direction to offsets and back, both y conventions
func TestOffsetRoundTrip(t *testing.T) {
	for _, c := range pointingGrid {
		b := m3geom.NewBasis(c.el, c.az)
		for _, ySign := range []float64{-1, 1} {
			for xo := -3.; xo <= 3; xo += 1.5 {
				for yo := -3.; yo <= 3; yo += 1.5 {
					d := m3geom.OffsetToDirection(&b, xo, yo, ySign)
					el, az := m3geom.AxisAngles(d)
					v := m3geom.AxisVector(el, az)
					if s := sep(d, v); s > 1e-6 {
						t.Fatal(c, xo, yo, "axis angles round trip", s)
					}
					x2, y2, ok := m3geom.DirectionToOffset(&b, v, ySign)
					if !ok {
						t.Fatal(c, xo, yo, "direction behind basis")
					}
					if math.Abs(x2-xo) > 1e-6 || math.Abs(y2-yo) > 1e-6 {
						t.Fatal(c, ySign, "offset", xo, yo, "returned", x2, y2)
					}
					if s := sep(m3geom.OffsetToDirection(&b, x2, y2, ySign), d); s > 1e-6 {
						t.Fatal(c, xo, yo, "direction round trip", s)
					}
				}
			}
		}
	}
}

func TestDirectionBehind(t *testing.T) {
	b := m3geom.NewBasis(70, 270)
	if _, _, ok := m3geom.DirectionToOffset(&b, b.Z.Mul(-1), 1); ok {
		t.Fatal("accepted direction opposite pointing")
	}
}

// Camera y sign.  Pointing north at the horizon, basis Y is up.  With the
// default YSign of -1 positive camera y looks below the pointing.
func TestCameraYSign(t *testing.T) {
	b := m3geom.NewBasis(0, 0)
	if !near(b.Y, r3.Vector{Z: 1}) || !near(b.X, r3.Vector{X: -1}) {
		t.Fatal("horizon basis", b)
	}
	if v := m3geom.LineOfSight(&b, 0, 1, -1); v.Z >= 0 {
		t.Fatal("y sign -1, camera +y looks up", v)
	}
	if v := m3geom.LineOfSight(&b, 0, 1, 1); v.Z <= 0 {
		t.Fatal("y sign +1, camera +y looks down", v)
	}
	// offsets use their own sign; source offset +y with sign +1 is above
	if v := m3geom.OffsetToDirection(&b, 0, .5, 1); v.Z <= 0 {
		t.Fatal("offset +y below pointing", v)
	}
}

func TestMeanPointing(t *testing.T) {
	el, az, n := m3geom.MeanPointing(
		[]float64{70, 0, 72, 71},
		[]float64{359.5, 0, .5, 0})
	if n != 3 {
		t.Fatal("n =", n)
	}
	if math.Abs(el-71) > 1e-12 {
		t.Fatal("el", el)
	}
	if math.Abs(m3geom.WrapDeg(az)) > 1e-12 {
		t.Fatal("az", az)
	}
	// a real pointing at azimuth 0 is not the (0, 0) sentinel
	if _, _, n := m3geom.MeanPointing([]float64{45}, []float64{0}); n != 1 {
		t.Fatal("azimuth 0 pointing excluded")
	}
	if el, az, n := m3geom.MeanPointing([]float64{0, 0}, []float64{0, 0}); n != 0 || el != 0 || az != 0 {
		t.Fatal("no pointing:", el, az, n)
	}
}

func TestPointingSpread(t *testing.T) {
	dEl, dAz := m3geom.PointingSpread(
		[]float64{70, 70.2, 0, 69.9},
		[]float64{359.8, .1, 0, 0})
	if math.Abs(dEl-.3) > 1e-9 || math.Abs(dAz-.3) > 1e-9 {
		t.Fatal(dEl, dAz)
	}
}

func TestLineOfSight(t *testing.T) {
	d, err := m3data.New(&m3data.Detector{Tel: []m3data.Telescope{
		{PixX: []float64{0, 1, 0}, PixY: []float64{0, 0, -2}},
	}}, 111, .148)
	if err != nil {
		t.Fatal(err)
	}
	d.TelEl[0], d.TelAz[0] = 60, 90
	if !m3geom.SetupPointing(d) {
		t.Fatal("no pointing")
	}
	m3geom.SetupLineOfSight(d, -1)
	if !near(d.LOS[0][0], d.Basis.Z) || math.Abs(d.CosTheta[0][0]-1) > 1e-15 {
		t.Fatal("center pixel", d.LOS[0][0], d.CosTheta[0][0])
	}
	for p, off := range []float64{0, 1, 2} {
		want := math.Cos(math.Atan(off * math.Pi / 180))
		if math.Abs(d.CosTheta[0][p]-want) > 1e-12 {
			t.Fatal("pixel", p, "cos theta", d.CosTheta[0][p], "want", want)
		}
	}
}

func TestBarycenter(t *testing.T) {
	d, err := m3data.New(&m3data.Detector{Tel: []m3data.Telescope{
		{Pos: r3.Vector{X: 100, Y: -50, Z: 2}, PixX: []float64{0}, PixY: []float64{0}},
		{Pos: r3.Vector{X: -80}, PixX: []float64{0}, PixY: []float64{0}},
	}}, 111, .148)
	if err != nil {
		t.Fatal(err)
	}
	par := m3data.Params{70, 180, 20, -30, 1e4, 3000, 10, 15}
	m3geom.Barycenter(d, &par)
	if math.Abs(d.Axis.Norm()-1) > 1e-12 {
		t.Fatal("axis norm", d.Axis.Norm())
	}
	// source to the west, 70° up
	if d.Axis.X >= 0 || math.Abs(d.Axis.Y) > 1e-12 ||
		math.Abs(d.Axis.Z-math.Sin(70*math.Pi/180)) > 1e-12 {
		t.Fatal("axis", d.Axis)
	}
	for t2 := range d.BaryTel {
		b := d.BaryTel[t2].Add(d.TelPos[t2]).Sub(r3.Vector{X: 20, Y: -30})
		if b.Sub(d.Axis.Mul(1e4)).Norm() > 1e-9 {
			t.Fatal("telescope", t2, "barycenter", d.BaryTel[t2])
		}
	}
	if c := m3geom.CompassAzimuth(par[m3data.Az]); c != 270 {
		t.Fatal("compass azimuth", c)
	}
}

func TestPlaneDistance(t *testing.T) {
	up := r3.Vector{Z: 1}
	if d := m3geom.PlaneDistance(r3.Vector{}, r3.Vector{X: 30, Y: 40, Z: 7}, up); math.Abs(d-50) > 1e-12 {
		t.Fatal(d)
	}
	dir := m3geom.PointingVector(45, 90)
	if d := m3geom.PlaneDistance(r3.Vector{}, r3.Vector{X: 100}, dir); math.Abs(d-100/math.Sqrt2) > 1e-9 {
		t.Fatal(d)
	}
}
