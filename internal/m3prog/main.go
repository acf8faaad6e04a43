// Public domain.

// Package m3prog implements the model3d command.  See the command doc.
package m3prog

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soniakeys/exit"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/globe"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hplot"
	"gonum.org/v1/plot/vg"

	"github.com/soniakeys/model3d/internal/m3conf"
	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3evt"
	"github.com/soniakeys/model3d/internal/m3fit"
	"github.com/soniakeys/model3d/internal/m3geom"
)

const versionString = "model3d version 0.1 Go source."
const copyrightString = "Public domain."

// Main is the model3d command.
func Main() {
	defer exit.Handler()
	log.SetFlags(0)
	cl := parseCommandLine()
	if cl.v {
		return
	}
	cfg := readConfig(cl)
	r := openEvents(cl.fnEvt)
	defer r.Close()
	f, err := m3fit.New(&r.Detector, cfg)
	if err != nil {
		exit.Log(err)
	}
	if cfg.Debug {
		f.Log = log.New(os.Stderr, "", log.Lmicroseconds)
	}
	opt := &outputOptions{
		runID:  uuid.New(),
		solver: cfg.Fit.Solver,
		radec:  cl.radec,
		site:   cfg.Site,
	}
	s, err := run(os.Stdout, r, f, opt)
	if err != nil {
		exit.Log(err)
	}
	log.Printf("%d events, %d good, %d converged", s.n, s.good, s.converged)
	if cl.fnHist > "" {
		if err := writeHist(cl.fnHist, s.goodness); err != nil {
			exit.Log(err)
		}
	}
}

type commandLine struct {
	fnConfig string // -c
	fnHist   string // -hist
	solver   string // -solver
	radec    bool   // -radec
	debug    bool   // -debug
	fnEvt    string // event file
	v        bool   // -v option
}

func parseCommandLine() *commandLine {
	var cl commandLine
	dh := flag.Bool("h", false, "")
	dv := flag.Bool("v", false, "")
	flag.StringVar(&cl.fnConfig, "c", "", "")
	flag.StringVar(&cl.fnHist, "hist", "", "")
	flag.StringVar(&cl.solver, "solver", "", "")
	flag.BoolVar(&cl.radec, "radec", false, "")
	flag.BoolVar(&cl.debug, "debug", false, "")
	flag.Usage = func() {
		os.Stderr.WriteString(`
Usage: model3d [options] <eventfile>  fit events in file
       model3d [options] -            fit events from stdin
       model3d -h                     display help and quick reference
       model3d -v                     display version and copyright

Options:
       -c <config-file>
       -solver twostage|lm
       -hist <png-file>   write goodness histogram of converged events
       -radec             add equatorial direction
       -debug             trace fit states on stderr
`)
	}
	flag.Parse()
	switch {
	case *dh:
		printHelp()
		os.Exit(0)
	case *dv:
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		cl.v = true
	case flag.NArg() != 1:
		flag.Usage()
		os.Exit(1)
	}
	cl.fnEvt = flag.Arg(0)
	return &cl
}

func readConfig(cl *commandLine) *m3conf.Config {
	cfg := m3conf.Default()
	if cl.fnConfig > "" {
		var err error
		if cfg, err = m3conf.Load(cl.fnConfig); err != nil {
			exit.Log(err)
		}
	}
	if cl.solver > "" {
		cfg.Fit.Solver = cl.solver
	}
	if cl.debug {
		cfg.Debug = true
	}
	return cfg
}

func openEvents(fn string) *m3evt.Reader {
	var r *m3evt.Reader
	var err error
	if fn == "-" {
		r, err = m3evt.NewReader(os.Stdin)
	} else {
		r, err = m3evt.Open(fn)
	}
	if err != nil {
		log.Println(err)
		exit.Log(`Use command "sim" to generate an event file.`)
	}
	return r
}

func printHelp() {
	fmt.Println(`
Model3d fits a 3D Gaussian photosphere model of an air shower to the pixel
signals of all telescopes of an event.  Input is an event file as written
by command sim.  Output is one line per event:  the fit parameters, the
goodness of fit and the fit status.

Config file sections:
   physics
   camera
   fit
   site
   debug
   display

Fit parameters:`)
	for _, n := range m3data.Names {
		fmt.Println("  ", n)
	}
	fmt.Println(`
For full documentation:
   go doc github.com/soniakeys/model3d`)
}

type outputOptions struct {
	runID  uuid.UUID
	solver string
	radec  bool
	site   m3conf.Site
}

type summary struct {
	n, good, converged int
	goodness           []float64 // converged events
}

func (s *summary) add(r *m3fit.Result) {
	s.n++
	if r.Good {
		s.good++
	}
	if r.Converged {
		s.converged++
		s.goodness = append(s.goodness, r.Goodness)
	}
}

// run fits events from r in order and prints a line for each.
func run(w io.Writer, r *m3evt.Reader, f *m3fit.Fitter, opt *outputOptions) (*summary, error) {
	evCh := make(chan *m3data.Event)
	errCh := make(chan error)
	done := make(chan struct{})
	split := make(chan struct{})
	go func() {
		m3evt.Split(r, evCh, errCh, done)
		close(split)
	}()
	// the reader is the caller's to close once Split is off it
	defer func() {
		close(done)
		<-split
	}()
	printHeadings(w, r, opt)
	s := &summary{}
	for {
		select {
		case err := <-errCh:
			return s, err
		case ev, ok := <-evCh:
			if !ok {
				return s, nil
			}
			res := f.Fit(ev)
			if _, err := fmt.Fprintln(w, formatResult(res, ev, opt)); err != nil {
				return s, err
			}
			s.add(res)
		}
	}
}

func printHeadings(w io.Writer, r *m3evt.Reader, opt *outputOptions) {
	fmt.Fprintln(w, "#", versionString)
	fmt.Fprintf(w, "# run %s solver %s, %d telescopes, file created %s\n",
		opt.runID, opt.solver, len(r.Detector.Tel),
		r.Created.Format(time.RFC3339))
	if r.Comment > "" {
		fmt.Fprintln(w, "#", r.Comment)
	}
	h := "#  evt G C      el       az    xcore    ycore     smax  sigmaL" +
		" sigmaT  logNc goodness    xoff    yoff"
	if opt.radec {
		h += "          ra          dec"
	}
	fmt.Fprintln(w, h+"  status")
}

// formatResult formats the result line of one event.  Azimuth is printed
// as a compass azimuth, like the pointing.
func formatResult(r *m3fit.Result, ev *m3data.Event, opt *outputOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%6d %s %s", r.Num, yn(r.Good), yn(r.Converged))
	if r.Err != nil && !r.Good {
		fmt.Fprintf(&b, "  %v", r.Err)
		return b.String()
	}
	p := &r.Par
	az := m3geom.CompassAzimuth(p[m3data.Az])
	fmt.Fprintf(&b, " %7.3f %8.3f %8.1f %8.1f %8.0f %7.0f %6.1f %6.3f %8.3f %7.3f %7.3f",
		p[m3data.El], az, p[m3data.XCore], p[m3data.YCore], p[m3data.Height],
		p[m3data.SigmaL], p[m3data.SigmaT], p[m3data.LogNc], r.Goodness,
		r.XOff, r.YOff)
	if opt.radec {
		ra, dec := equatorial(opt.site, ev.Time, p[m3data.El], az)
		fmt.Fprintf(&b, " %.1d %+.0d", sexa.FmtRA(ra), sexa.FmtAngle(dec))
	}
	b.WriteString("  ")
	b.WriteString(r.Status)
	if r.Err != nil {
		fmt.Fprintf(&b, ": %v", r.Err)
	}
	return b.String()
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

// equatorial returns apparent equatorial coordinates of the horizontal
// direction el, az (compass, deg) seen from site s at time t.
func equatorial(s m3conf.Site, t time.Time, el, az float64) (unit.RA, unit.Angle) {
	hz := &coord.Horizontal{
		Az:  unit.AngleFromDeg(az - 180), // meeus azimuth is from south
		Alt: unit.AngleFromDeg(el),
	}
	g := globe.Coord{
		Lat: unit.AngleFromDeg(s.Latitude),
		Lon: unit.AngleFromDeg(-s.Longitude), // west positive
	}
	st := sidereal.Apparent(julian.TimeToJD(t))
	eq := new(coord.Equatorial).HzToEq(hz, g, st)
	return eq.RA, eq.Dec
}

// writeHist writes a PNG histogram of goodness values.
func writeHist(fn string, goodness []float64) error {
	h := hbook.NewH1D(60, -10, 20)
	for _, g := range goodness {
		h.Fill(g, 1)
	}
	p := hplot.New()
	p.Title.Text = "model3d goodness of fit"
	p.X.Label.Text = "goodness"
	p.Y.Label.Text = "events"
	p.Add(hplot.NewH1D(h))
	return p.Save(6*vg.Inch, 4*vg.Inch, fn)
}
