// Public domain.

package main

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3data"
)

func TestTruth(t *testing.T) {
	band := m3conf.Default().Fit.GammaSigmaT
	for _, hadron := range []bool{false, true} {
		src := &rand.PCGSource{}
		src.Seed(3)
		d := newDraws(src, hadron)
		for i := 0; i < 100; i++ {
			p := d.truth(70, 180)
			if err := p.Validate(); err != nil {
				t.Fatal(err)
			}
			if p[m3data.El] != 70 || p[m3data.Az] != -90 {
				t.Fatal("direction", p[m3data.El], p[m3data.Az])
			}
			inBand := p[m3data.SigmaT] >= band[0] && p[m3data.SigmaT] <= band[1]
			if inBand == hadron {
				t.Fatal("hadron", hadron, "sigmaT", p[m3data.SigmaT])
			}
		}
	}
}
