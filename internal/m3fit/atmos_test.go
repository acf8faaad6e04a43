// Public domain.

package m3fit_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3fit"
)

func TestAtmosphere(t *testing.T) {
	a := &m3conf.Default().Physics.Atmosphere
	if d := m3fit.AirDensity(a, 0); math.Abs(d-1.225) > 1e-3 {
		t.Fatal("sea level density", d)
	}
	if d := m3fit.SlantDepth(a, 0, 45); d != a.Depth0 {
		t.Fatal("depth at ground", d)
	}
	// one scale height, vertical
	if d := m3fit.SlantDepth(a, 6400, 90); math.Abs(d-a.Depth0/math.E) > 1e-9 {
		t.Fatal("depth at scale height", d)
	}
	// height along an inclined axis is reduced to vertical
	if math.Abs(m3fit.SlantDepth(a, 2e4, 30)-m3fit.SlantDepth(a, 1e4, 90)) > 1e-9 {
		t.Fatal("inclined axis")
	}
	for _, z := range []float64{1, 5, 10} {
		if m3fit.AirDensity(a, z) >= m3fit.AirDensity(a, z-1) {
			t.Fatal("density not decreasing at", z)
		}
	}
	// 10 m at sea level is 1.225 g/cm² of 1300
	if w := m3fit.ReducedWidth(a, 10, 0, 90); math.Abs(w-.9423) > 1e-4 {
		t.Fatal("reduced width", w)
	}
	if m3fit.ReducedWidth(a, 0, 1e4, 70) != 0 {
		t.Fatal("zero width")
	}
}

func ExampleReducedWidth() {
	a := &m3conf.Default().Physics.Atmosphere
	fmt.Printf("depth %.0f g/cm², reduced width %.2f\n",
		m3fit.SlantDepth(a, 1e4, 70),
		m3fit.ReducedWidth(a, 10, 1e4, 70))
	// Output:
	// depth 299 g/cm², reduced width 1.48
}
