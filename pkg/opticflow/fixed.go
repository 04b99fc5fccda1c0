package opticflow

import (
	"fmt"
	"math"
)

// Fixed is a signed fixed-point value with FixedShift fractional bits.
type Fixed int32

const (
	FixedShift       = 14
	FixedOne   Fixed = 1 << FixedShift
	fixedMask  Fixed = FixedOne - 1
)

func FixedFromInt(v int) Fixed { return Fixed(v) << FixedShift }

func FixedFromFloat(v float64) Fixed { return Fixed(math.Round(v * float64(FixedOne))) }

// Int returns the integer part, rounded toward negative infinity.
func (f Fixed) Int() int { return int(f >> FixedShift) }

// Frac returns the fractional part in [0, FixedOne).
func (f Fixed) Frac() Fixed { return f & fixedMask }

func (f Fixed) Float() float64 { return float64(f) / float64(FixedOne) }

func (f Fixed) Abs() Fixed {
	if f < 0 {
		return -f
	}
	return f
}

// Point is a position or displacement in fixed-point pixel units.
type Point struct {
	X, Y Fixed
}

// InvalidPoint marks a feature that could not be tracked.
var InvalidPoint = Point{X: -1, Y: -1}

// Pt returns the fixed-point position of the integer pixel (x, y).
func Pt(x, y int) Point { return Point{X: FixedFromInt(x), Y: FixedFromInt(y)} }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Shr scales the point down by 2^n (one pyramid level per n).
func (p Point) Shr(n int) Point { return Point{X: p.X >> uint(n), Y: p.Y >> uint(n)} }

// Shl scales the point up by 2^n.
func (p Point) Shl(n int) Point { return Point{X: p.X << uint(n), Y: p.Y << uint(n)} }

func (p Point) IsInvalid() bool { return p == InvalidPoint }

func (p Point) String() string {
	return fmt.Sprintf("(%.3f,%.3f)", p.X.Float(), p.Y.Float())
}

// Point2d is a floating-point position used by the reference backends.
type Point2d struct {
	X, Y float64
}

func (p Point) Point2d() Point2d { return Point2d{X: p.X.Float(), Y: p.Y.Float()} }
