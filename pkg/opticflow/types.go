package opticflow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBoundsViolation = errors.New("sampling window outside image bounds")
	ErrIllConditioned  = errors.New("structure matrix is near singular")
	ErrNoFeature       = errors.New("no feature found")
	ErrTrackingAborted = errors.New("tracking aborted")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrFrameSize       = errors.New("frame size does not match configuration")
)

// PixelLayout describes the channel layout of a source frame.
type PixelLayout int

const (
	LayoutGray   PixelLayout = 1
	LayoutRGB565 PixelLayout = 2
	LayoutRGB    PixelLayout = 3
)

// BytesPerPixel returns the source stride of one pixel, or 0 for an unknown layout.
func (l PixelLayout) BytesPerPixel() int {
	switch l {
	case LayoutGray:
		return 1
	case LayoutRGB565:
		return 2
	case LayoutRGB:
		return 3
	default:
		return 0
	}
}

func (l PixelLayout) String() string {
	switch l {
	case LayoutGray:
		return "gray"
	case LayoutRGB565:
		return "rgb565"
	case LayoutRGB:
		return "rgb"
	default:
		return "Unknown"
	}
}

// ParsePixelLayout accepts the names produced by String.
func ParsePixelLayout(s string) (PixelLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey", "1":
		return LayoutGray, nil
	case "rgb565", "565":
		return LayoutRGB565, nil
	case "rgb", "rgb888", "3":
		return LayoutRGB, nil
	}
	return 0, fmt.Errorf("unknown pixel layout %q", s)
}

// Policy selects how an aggregated motion vector is turned into a Direction.
type Policy int

const (
	PolicySingleAxis Policy = iota
	PolicyCompass
)

func (p Policy) String() string {
	switch p {
	case PolicySingleAxis:
		return "single_axis"
	case PolicyCompass:
		return "compass"
	default:
		return "Unknown"
	}
}

func (p Policy) MarshalText() ([]byte, error) {
	if p != PolicySingleAxis && p != PolicyCompass {
		return nil, fmt.Errorf("unknown policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "single_axis", "single-axis", "vertical":
		*p = PolicySingleAxis
	case "compass", "8way", "8-way":
		*p = PolicyCompass
	default:
		return fmt.Errorf("unknown policy %q", string(text))
	}
	return nil
}

// Direction is the coarse motion label. Up/Down follow image rows: a positive
// dy (content moving toward the bottom row) is Down.
type Direction int

const (
	DirUnknown Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
	DirUpLeft
	DirUpRight
	DirDownLeft
	DirDownRight
)

var directionLabels = map[Direction]string{
	DirUnknown:   "Unknown",
	DirUp:        "Up",
	DirDown:      "Down",
	DirLeft:      "Left",
	DirRight:     "Right",
	DirUpLeft:    "Up-left",
	DirUpRight:   "Up-right",
	DirDownLeft:  "Down-left",
	DirDownRight: "Down-right",
}

func (d Direction) String() string {
	if s, ok := directionLabels[d]; ok {
		return s
	}
	return "Unknown"
}

// LevelState is the terminal state of one Level Tracker call.
type LevelState int

const (
	StateIterating LevelState = iota
	StateConverged
	StateFailed
)

func (s LevelState) String() string {
	switch s {
	case StateIterating:
		return "Iterating"
	case StateConverged:
		return "Converged"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// FeaturePoint is a selected corner on the reference frame.
type FeaturePoint struct {
	Pos   Point
	Score int64
}

// LevelResult is the outcome of tracking one point on one pyramid level.
// A budget-exhausted run ends in StateIterating with a nil Err.
type LevelResult struct {
	Pos        Point
	State      LevelState
	Iterations int
	Err        error
}

// AbortError names the pyramid level at which a track was abandoned. It
// matches ErrTrackingAborted and unwraps to the level failure.
type AbortError struct {
	Level  int
	Reason error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%v: level %d: %v", ErrTrackingAborted, e.Level, e.Reason)
}

func (e *AbortError) Is(target error) bool { return target == ErrTrackingAborted }

func (e *AbortError) Unwrap() error { return e.Reason }

// FlowResult is the full-resolution outcome for one feature. Err of a
// tracker-produced invalid result is an *AbortError.
type FlowResult struct {
	Input  Point
	Output Point
	Valid  bool
	Err    error
}

// Displacement returns Output-Input, or the zero point for an invalid result.
func (r FlowResult) Displacement() Point {
	if !r.Valid || r.Output.IsInvalid() {
		return Point{}
	}
	return r.Output.Sub(r.Input)
}

func (r FlowResult) String() string {
	if !r.Valid {
		return fmt.Sprintf("{Input=%v, Invalid, Err=%v}", r.Input, r.Err)
	}
	return fmt.Sprintf("{Input=%v, Output=%v, D=%v}", r.Input, r.Output, r.Displacement())
}

// Motion is the aggregate of all valid per-feature displacements.
type Motion struct {
	Sum       Point
	Mean      Point
	Valid     int
	Total     int
	Magnitude float64 // pixels, of Sum
	AngleDeg  float64 // [0, 360), image coordinates
	Direction Direction
}

func (m Motion) String() string {
	return fmt.Sprintf("{Direction=%s, Sum=%v, Mean=%v, Valid=%d/%d, Magnitude=%.3f, Angle=%.1f}",
		m.Direction, m.Sum, m.Mean, m.Valid, m.Total, m.Magnitude, m.AngleDeg)
}

// Report is the result of processing one frame pair. Slices alias Estimator
// storage and stay valid until the next Process call.
type Report struct {
	Features []FeaturePoint
	Results  []FlowResult
	Motion   Motion
	// Fallback is set when no feature cleared the score threshold and the
	// image center was tracked instead.
	Fallback bool
}
