// Public domain.

package m3data

import "github.com/golang/geo/r3"

// Normalize scales v to unit length in place.  A zero vector is left
// unchanged.
func Normalize(v *r3.Vector) {
	if n := v.Norm(); n > 0 {
		*v = v.Mul(1 / n)
	}
}

// Cross returns a × b.
func Cross(a, b r3.Vector) r3.Vector { return a.Cross(b) }

// Dot returns a · b.
func Dot(a, b r3.Vector) float64 { return a.Dot(b) }
