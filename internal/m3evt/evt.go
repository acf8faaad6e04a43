// Public domain.

// Package m3evt reads and writes event files.
//
// An event file is a gob stream of a Header, which carries the detector,
// followed by any number of m3data.Event values.
package m3evt

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/soniakeys/model3d/internal/m3data"
)

// Version identifies the file format.
const Version = "model3d events 1"

// ErrVersion is returned for a stream that is not an event file of this
// version.
var ErrVersion = errors.New("not a model3d event file")

// Header starts an event file.
type Header struct {
	Version  string
	Created  time.Time
	Comment  string
	Detector m3data.Detector
}

// Writer writes an event stream.
type Writer struct {
	enc *gob.Encoder
	c   io.Closer
}

// NewWriter writes the header for detector det to w and returns a Writer
// for events.
func NewWriter(w io.Writer, det *m3data.Detector, comment string) (*Writer, error) {
	enc := gob.NewEncoder(w)
	err := enc.Encode(&Header{
		Version:  Version,
		Created:  time.Now().UTC(),
		Comment:  comment,
		Detector: *det,
	})
	if err != nil {
		return nil, err
	}
	return &Writer{enc: enc}, nil
}

// Create creates file fn and writes the header.
func Create(fn string, det *m3data.Detector, comment string) (*Writer, error) {
	f, err := os.Create(fn)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, det, comment)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.c = f
	return w, nil
}

// Write writes an event.
func (w *Writer) Write(ev *m3data.Event) error {
	return w.enc.Encode(ev)
}

// Close closes the file of a Writer from Create.  It does nothing for a
// Writer from NewWriter.
func (w *Writer) Close() error {
	if w.c == nil {
		return nil
	}
	return w.c.Close()
}

// Reader reads an event stream.
type Reader struct {
	Header
	dec *gob.Decoder
	c   io.Closer
}

// NewReader reads the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	rd := &Reader{dec: gob.NewDecoder(r)}
	if err := rd.dec.Decode(&rd.Header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVersion, err)
	}
	if rd.Version != Version {
		return nil, fmt.Errorf("%w: version %q", ErrVersion, rd.Version)
	}
	return rd, nil
}

// Open opens file fn and reads the header.
func Open(fn string) (*Reader, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	r.c = f
	return r, nil
}

// Next returns the next event, or io.EOF after the last.
func (r *Reader) Next() (*m3data.Event, error) {
	ev := new(m3data.Event)
	if err := r.dec.Decode(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Close closes the file of a Reader from Open.
func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	return r.c.Close()
}

// Split sends events from r on evCh until the end of the stream, then
// closes evCh.  A read error is sent on errCh and ends the stream without
// closing evCh.  Closing done stops Split at its next send.
func Split(r *Reader, evCh chan<- *m3data.Event, errCh chan<- error, done <-chan struct{}) {
	for {
		ev, err := r.Next()
		if err == nil {
			select {
			case evCh <- ev:
				continue
			case <-done:
				return
			}
		}
		if err == io.EOF {
			break
		}
		select {
		case errCh <- err:
		case <-done:
		}
		return
	}
	close(evCh)
}

// ReadFile reads a complete event file.
func ReadFile(fn string) (det *m3data.Detector, evs []*m3data.Event, err error) {
	var r *Reader
	if r, err = Open(fn); err != nil {
		return
	}
	defer r.Close()
	det = &r.Detector
	for {
		var ev *m3data.Event
		ev, err = r.Next()
		if err == io.EOF {
			return det, evs, nil
		}
		if err != nil {
			return
		}
		evs = append(evs, ev)
	}
}
