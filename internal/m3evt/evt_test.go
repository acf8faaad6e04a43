// Public domain.

package m3evt_test

import (
	"bytes"
	"encoding/gob"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"github.com/soniakeys/model3d/internal/m3data"
	"github.com/soniakeys/model3d/internal/m3evt"
)

var det = &m3data.Detector{Tel: []m3data.Telescope{
	{Pos: r3.Vector{X: 150}, PixX: []float64{0, .15}, PixY: []float64{0, 0}},
	{Pos: r3.Vector{X: -75, Y: 130}, MirrorArea: 100, PixX: []float64{0}, PixY: []float64{.15}},
}}

func events() []*m3data.Event {
	tr := m3data.Params{70, 180, 0, 0, 1e4, 3000, 10, 15}
	return []*m3data.Event{
		{
			Num:  1,
			Time: time.Date(2010, 1, 1, 0, 0, 1, 0, time.UTC),
			Tel: []m3data.TelEvent{
				{El: 70, Az: 270, Signal: []float64{12, 3}, PedVar: []float64{1, 1},
					Image: []bool{true, false}, Border: []bool{false, true},
					Hillas: m3data.Hillas{CenX: .1, Size: 15, CosPhi: 1, Length: .2, Width: .05}},
				{El: 70, Az: 270, Signal: []float64{0}, PedVar: []float64{1.2},
					Image: []bool{false}, Border: []bool{false}},
			},
			Reco:  m3data.Reco{NImages: 1, XOff: .01, XCore: 12},
			Truth: &tr,
		},
		{
			Num:  2,
			Time: time.Date(2010, 1, 1, 0, 0, 2, 0, time.UTC),
			Tel: []m3data.TelEvent{
				{El: 70, Az: 270, Signal: []float64{1, 2}, PedVar: []float64{1, 1},
					Image: []bool{false, false}, Border: []bool{false, false}},
				{El: 70, Az: 270, Signal: []float64{4}, PedVar: []float64{1},
					Image: []bool{true}, Border: []bool{false}},
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	var b bytes.Buffer
	w, err := m3evt.NewWriter(&b, det, "test")
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events() {
		if err := w.Write(ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := m3evt.NewReader(&b)
	if err != nil {
		t.Fatal(err)
	}
	if r.Comment != "test" || !reflect.DeepEqual(r.Detector, *det) {
		t.Fatalf("header %+v", r.Header)
	}
	for _, want := range events() {
		got, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !got.Time.Equal(want.Time) {
			t.Fatal(got.Time, want.Time)
		}
		got.Time, want.Time = time.Time{}, time.Time{}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %+v\nwant %+v", got, want)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatal("want EOF, got", err)
	}
}

func TestVersion(t *testing.T) {
	var b bytes.Buffer
	gob.NewEncoder(&b).Encode(&m3evt.Header{Version: "model3d events 0"})
	if _, err := m3evt.NewReader(&b); !errors.Is(err, m3evt.ErrVersion) {
		t.Fatal("want ErrVersion, got", err)
	}
	if _, err := m3evt.NewReader(bytes.NewBufferString("not gob")); !errors.Is(err, m3evt.ErrVersion) {
		t.Fatal("want ErrVersion, got", err)
	}
}

func TestFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "ev.gob")
	w, err := m3evt.Create(fn, det, "")
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range events() {
		w.Write(ev)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	d, evs, err := m3evt.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Tel) != 2 || len(evs) != 2 || evs[1].Num != 2 || evs[1].Truth != nil {
		t.Fatal(d, evs)
	}
	if _, _, err := m3evt.ReadFile(filepath.Join(t.TempDir(), "none")); err == nil {
		t.Fatal("missing file read")
	}
}

func TestSplit(t *testing.T) {
	var b bytes.Buffer
	w, _ := m3evt.NewWriter(&b, det, "")
	for _, ev := range events() {
		w.Write(ev)
	}
	// truncated final event
	b.Truncate(b.Len() - 5)
	r, err := m3evt.NewReader(&b)
	if err != nil {
		t.Fatal(err)
	}
	evCh := make(chan *m3data.Event)
	errCh := make(chan error, 1)
	go m3evt.Split(r, evCh, errCh, nil)
	if ev := <-evCh; ev.Num != 1 {
		t.Fatal(ev.Num)
	}
	select {
	case ev := <-evCh:
		t.Fatal("truncated event read", ev)
	case err := <-errCh:
		if err == nil || err == io.EOF {
			t.Fatal(err)
		}
	}
}

func TestSplitDone(t *testing.T) {
	var b bytes.Buffer
	w, _ := m3evt.NewWriter(&b, det, "")
	for _, ev := range events() {
		w.Write(ev)
	}
	r, err := m3evt.NewReader(&b)
	if err != nil {
		t.Fatal(err)
	}
	evCh := make(chan *m3data.Event)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		m3evt.Split(r, evCh, make(chan error), done)
		close(stopped)
	}()
	<-evCh
	// nothing receives the second event
	close(done)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Split still blocked after done")
	}
}
