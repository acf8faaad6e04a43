// Public domain.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3evt"
	"github.com/soniakeys/model3d/internal/m3sim"
)

const versionString = "sim version 0.1 Go source."
const copyrightString = "Public domain."

type fatal struct {
	err error
}

func exit(err error) {
	panic(fatal{err})
}

func handleFatal() {
	if err := recover(); err != nil {
		if f, ok := err.(fatal); ok {
			log.Fatal(f.err)
		}
		panic(err)
	}
}

func main() {
	defer handleFatal()
	log.SetFlags(0)

	flag.Usage = func() {
		os.Stderr.WriteString(`Usage:
  sim [options]       Write synthetic events.
  sim -v              Display version and copyright.

Options:
`)
		flag.PrintDefaults()
		os.Stderr.WriteString(`
For full documentation:
   go doc github.com/soniakeys/model3d/sim
`)
	}
	out := flag.String("o", "model3d.evt", "output event file")
	fnConfig := flag.String("c", "", "config file")
	n := flag.Int("n", 100, "number of events")
	seed := flag.Uint64("seed", 1, "random seed")
	nTel := flag.Int("tel", 4, "number of telescopes")
	ring := flag.Float64("r", 80, "radius of telescope ring, m")
	half := flag.Int("half", 10, "camera half width, pixels")
	spacing := flag.Float64("spacing", .15, "pixel spacing, deg")
	el := flag.Float64("el", 70, "pointing elevation, deg")
	az := flag.Float64("az", 180, "pointing azimuth from north, deg")
	hadron := flag.Bool("hadron", false, "wide showers, outside the gamma band")
	noise := flag.Bool("noise", true, "Poisson and pedestal noise")
	dirSmear := flag.Float64("dsmear", .05, "rms smear of reconstructed direction, deg")
	coreSmear := flag.Float64("csmear", 10, "rms smear of reconstructed core, m")
	vers := flag.Bool("v", false, "display version and copyright")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if flag.NArg() > 0 || *n < 1 || *nTel < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cfg := m3conf.Default()
	if *fnConfig > "" {
		var err error
		if cfg, err = m3conf.Load(*fnConfig); err != nil {
			exit(err)
		}
	}
	det := m3sim.Array(m3sim.Ring(*nTel, *ring), *half, *spacing)
	g, err := m3sim.New(det, cfg, *seed)
	if err != nil {
		exit(err)
	}
	g.Noise = *noise
	g.DirSmear, g.CoreSmear = *dirSmear, *coreSmear

	w, err := m3evt.Create(*out, det, strings.Join(os.Args, " "))
	if err != nil {
		exit(err)
	}
	src := &rand.PCGSource{}
	src.Seed(*seed + 1)
	d := newDraws(src, *hadron)
	for i := 1; i <= *n; i++ {
		ev, err := g.Event(i, *el, *az, d.truth(*el, *az))
		if err != nil {
			exit(err)
		}
		if err = w.Write(ev); err != nil {
			exit(err)
		}
	}
	if err = w.Close(); err != nil {
		exit(err)
	}
	log.Printf("%d events written to %s", *n, *out)
}

// draws samples shower parameters.
type draws struct {
	core, height, sigmaL, sigmaT, logNc distuv.Uniform
}

func newDraws(src rand.Source, hadron bool) *draws {
	u := func(lo, hi float64) distuv.Uniform {
		return distuv.Uniform{Min: lo, Max: hi, Src: src}
	}
	d := &draws{
		core:   u(-150, 150),
		height: u(8e3, 12e3),
		sigmaL: u(2500, 3500),
		sigmaT: u(8, 15),
		logNc:  u(14.5, 15.5),
	}
	if hadron {
		d.sigmaT = u(30, 60)
	}
	return d
}

// truth returns parameters of a shower from the pointing direction,
// compass azimuth az.
func (d *draws) truth(el, az float64) m3data.Params {
	return m3data.Params{
		m3data.El:     el,
		m3data.Az:     90 - az,
		m3data.XCore:  d.core.Rand(),
		m3data.YCore:  d.core.Rand(),
		m3data.Height: d.height.Rand(),
		m3data.SigmaL: d.sigmaL.Rand(),
		m3data.SigmaT: d.sigmaT.Rand(),
		m3data.LogNc:  d.logNc.Rand(),
	}
}
