package opticflow

import (
	"errors"
	"fmt"
	"math"
)

// ErrReferenceUnavailable is returned by ReferenceFlow in builds without OpenCV.
var ErrReferenceUnavailable = errors.New("reference flow requires the OpenCV build")

// ReferenceResult is one point tracked by the floating-point reference.
type ReferenceResult struct {
	Input  Point2d
	Output Point2d
	Valid  bool
}

func (r ReferenceResult) Displacement() Point2d {
	if !r.Valid {
		return Point2d{}
	}
	return Point2d{X: r.Output.X - r.Input.X, Y: r.Output.Y - r.Input.Y}
}

// CompareFlow pairs fixed-point results with reference results for the same
// inputs and returns the displacement error in pixels of every pair where
// both are valid.
func CompareFlow(fixed []FlowResult, ref []ReferenceResult) ([]float64, error) {
	if len(fixed) != len(ref) {
		return nil, fmt.Errorf("compare %d results against %d reference results", len(fixed), len(ref))
	}
	errs := make([]float64, 0, len(fixed))
	for i := range fixed {
		if !fixed[i].Valid || !ref[i].Valid {
			continue
		}
		d := fixed[i].Displacement().Point2d()
		rd := ref[i].Displacement()
		errs = append(errs, math.Hypot(d.X-rd.X, d.Y-rd.Y))
	}
	return errs, nil
}
