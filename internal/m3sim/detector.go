// Public domain.

package m3sim

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/soniakeys/model3d/internal/m3data"
)

// GridCamera returns pixel coordinates of a square camera of
// (2·half+1)² pixels at the given spacing, deg.
func GridCamera(half int, spacing float64) (x, y []float64) {
	for i := -half; i <= half; i++ {
		for j := -half; j <= half; j++ {
			x = append(x, float64(i)*spacing)
			y = append(y, float64(j)*spacing)
		}
	}
	return
}

// Ring returns n ground positions evenly spaced on a circle of radius r
// (m) about the origin, the first on +x.
func Ring(n int, r float64) []r3.Vector {
	pos := make([]r3.Vector, n)
	for i := range pos {
		a := 2 * math.Pi * float64(i) / float64(n)
		pos[i] = r3.Vector{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return pos
}

// Array returns a detector of grid camera telescopes at the given
// positions.  Mirror area and pixel diameter are left to configured
// defaults.
func Array(pos []r3.Vector, half int, spacing float64) *m3data.Detector {
	det := &m3data.Detector{Tel: make([]m3data.Telescope, len(pos))}
	for t, p := range pos {
		x, y := GridCamera(half, spacing)
		det.Tel[t] = m3data.Telescope{Pos: p, PixX: x, PixY: y}
	}
	return det
}
