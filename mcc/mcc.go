// Public domain.

package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

const versionString = "mcc version 0.2 Go source."
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
		os.Stderr.WriteString(
			"Usage: mcc [options] <in-class> <out-of-class> [threshold]\n")
		flag.PrintDefaults()
		os.Stderr.WriteString(`
For full documentation:
   go doc github.com/soniakeys/model3d/mcc
`)
	}
	col := flag.Int("c", 11, "column containing score")
	above := flag.Bool("above", false, "scores above threshold predict in-class")
	scan := flag.Bool("scan", false, "also report the best threshold")
	vers := flag.Bool("v", false, "display version and copyright")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		os.Exit(0)
	}
	if n := flag.NArg(); n < 2 || n > 3 {
		flag.Usage()
		os.Exit(1)
	}
	threshold := 2.
	thresholdPrec := 0
	if flag.NArg() == 3 {
		tStr := flag.Arg(2)
		var err error
		if threshold, err = strconv.ParseFloat(tStr, 64); err != nil {
			exit(fmt.Errorf("bad threshold: %w", err))
		}
		if p := strings.Index(tStr, "."); p >= 0 {
			thresholdPrec = len(tStr) - p - 1
		}
	}
	c := cut{col: *col, above: *above}
	in, inIgnored, err := readScores(flag.Arg(0), c.col)
	if err != nil {
		exit(fmt.Errorf("in-class file: %w", err))
	}
	out, outIgnored, err := readScores(flag.Arg(1), c.col)
	if err != nil {
		exit(fmt.Errorf("out-of-class file: %w", err))
	}
	tp, fn, fp, tn := c.confusion(in, out, threshold)

	fmt.Println("\nIn-class file:     ", flag.Arg(0))
	fmt.Println("Out-of-class file: ", flag.Arg(1))
	fmt.Println("Total events:      ", tp+fn+fp+tn)
	if ig := inIgnored + outIgnored; ig != 0 {
		fmt.Println("Lines ignored:     ", ig)
	}
	fmt.Printf("Threshold:          %.*f\n", thresholdPrec, threshold)
	fmt.Println()
	fmt.Println("                      model3d prediction")
	fmt.Println("                    -----------------------")
	fmt.Println("                     in-class  out-of-class")
	fmt.Printf("Actual in-class       %7d       %7d\n", tp, fn)
	fmt.Printf("Actual out-of-class   %7d       %7d\n", fp, tn)
	fmt.Println()
	for _, s := range []struct {
		name   string
		scores []float64
	}{{"in-class", in}, {"out-of-class", out}} {
		if len(s.scores) > 0 {
			m, sd := stat.MeanStdDev(s.scores, nil)
			fmt.Printf("Score %-13s mean %.3g, std dev %.3g\n", s.name, m, sd)
		}
	}
	fmt.Printf("Matthews correlation coefficient: %.2f\n",
		c.mcc(in, out, threshold))
	if *scan {
		t, m := c.best(in, out)
		fmt.Printf("Best threshold %.3g, coefficient %.2f\n", t, m)
	}
}

// cut predicts in-class for scores at or below a threshold, or above it
// when above is set.
type cut struct {
	col   int
	above bool
}

func (c cut) predict(score, threshold float64) bool {
	if c.above {
		return score > threshold
	}
	return score <= threshold
}

func (c cut) confusion(in, out []float64, threshold float64) (tp, fn, fp, tn int) {
	for _, s := range in {
		if c.predict(s, threshold) {
			tp++
		} else {
			fn++
		}
	}
	for _, s := range out {
		if c.predict(s, threshold) {
			fp++
		} else {
			tn++
		}
	}
	return
}

// mcc is the correlation of actual and predicted class, with 0 when
// either is constant.
func (c cut) mcc(in, out []float64, threshold float64) float64 {
	actual := make([]float64, 0, len(in)+len(out))
	pred := make([]float64, 0, len(in)+len(out))
	for i, scores := range [][]float64{out, in} {
		for _, s := range scores {
			actual = append(actual, float64(i))
			p := 0.
			if c.predict(s, threshold) {
				p = 1
			}
			pred = append(pred, p)
		}
	}
	m := stat.Correlation(actual, pred, nil)
	if math.IsNaN(m) {
		return 0
	}
	return m
}

// best returns the threshold among the scores with the largest
// coefficient.
func (c cut) best(in, out []float64) (threshold, mcc float64) {
	all := append(append([]float64{}, in...), out...)
	sort.Float64s(all)
	mcc = math.Inf(-1)
	for _, t := range all {
		if m := c.mcc(in, out, t); m > mcc {
			threshold, mcc = t, m
		}
	}
	return
}

// readScores reads column col of the result lines of file fn.  Comment
// lines and lines without a number in col are counted as ignored.
func readScores(fn string, col int) (scores []float64, ignored int, err error) {
	var b []byte
	if b, err = os.ReadFile(fn); err != nil {
		return
	}
	for _, line := range strings.Split(string(b), "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Fields(line)
		if len(f) <= col {
			ignored++
			continue
		}
		s, err := strconv.ParseFloat(f[col], 64)
		if err != nil || math.IsNaN(s) {
			ignored++
			continue
		}
		scores = append(scores, s)
	}
	return
}
