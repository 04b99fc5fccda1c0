// Package report writes motion estimates as text lines, the way the camera
// firmware prints them on its UART.
package report

import (
	"fmt"
	"io"
	"sync"

	"opticflow/pkg/opticflow"
)

// Reporter writes one direction line per frame pair. When the direction is
// unknown it adds the raw vertical sum so the noise floor can be tuned.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose}
}

// Report writes rep. A nil report (the first frame of a stream) writes nothing.
func (r *Reporter) Report(rep *opticflow.Report) error {
	if rep == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verbose {
		for i, res := range rep.Results {
			if _, err := fmt.Fprintf(r.w, "feature %d: %v\n", i, res); err != nil {
				return err
			}
		}
		if rep.Fallback {
			if _, err := fmt.Fprintln(r.w, "no feature found, tracked center"); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintln(r.w, rep.Motion.Direction); err != nil {
		return err
	}
	if rep.Motion.Direction == opticflow.DirUnknown {
		if _, err := fmt.Fprintf(r.w, "Final dy=%d\n", int32(rep.Motion.Sum.Y)); err != nil {
			return err
		}
	}
	return nil
}
