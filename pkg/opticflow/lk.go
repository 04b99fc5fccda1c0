package opticflow

import (
	"fmt"
	"math"
)

const (
	// minDeterminant rejects near-singular structure matrices.
	minDeterminant = 1000
	// maxStep caps one update so a huge solve cannot wrap the Q14 range.
	maxStep = 1024 * FixedOne
)

// Arithmetic computes one Gauss-Newton update for the window of the given
// radius centered on the integer reference pixel (ox, oy), with the current
// frame sampled at displacement d. Implementations skip taps that read the
// gradient border or fall outside the current image.
type Arithmetic interface {
	Step(ref, cur *Image, grad *GradientField, ox, oy, radius int, d Point) (Point, error)
}

// NewArithmetic returns the backend named by Config.Arithmetic.
func NewArithmetic(name string) (Arithmetic, error) {
	switch name {
	case ArithmeticFixed, "":
		return FixedArithmetic{}, nil
	case ArithmeticFloat:
		return FloatArithmetic{}, nil
	}
	return nil, fmt.Errorf("%w: unknown arithmetic %q", ErrInvalidConfig, name)
}

// FixedArithmetic is the Q14 integer backend. The Cramer solution is
// multiplied by GradientGain so the returned step is in pixel units.
type FixedArithmetic struct{}

func (FixedArithmetic) Step(ref, cur *Image, grad *GradientField, ox, oy, radius int, d Point) (Point, error) {
	w, h := ref.Width, ref.Height
	var sx, sy, sxx, sxy, syy int64

	for wy := -radius; wy <= radius; wy++ {
		ry := oy + wy
		if ry < 1 || ry > h-2 {
			continue
		}
		py := FixedFromInt(ry) + d.Y
		iy, fy := py.Int(), int64(py.Frac())
		if iy < 0 || iy+1 > cur.Height-1 {
			continue
		}
		for wx := -radius; wx <= radius; wx++ {
			rx := ox + wx
			if rx < 1 || rx > w-2 {
				continue
			}
			px := FixedFromInt(rx) + d.X
			ix, fx := px.Int(), int64(px.Frac())
			if ix < 0 || ix+1 > cur.Width-1 {
				continue
			}

			i0 := iy*cur.Stride + ix
			i1 := i0 + cur.Stride
			top := int64(cur.Pix[i0])*(int64(FixedOne)-fx) + int64(cur.Pix[i0+1])*fx
			bot := int64(cur.Pix[i1])*(int64(FixedOne)-fx) + int64(cur.Pix[i1+1])*fx
			sample := (top*(int64(FixedOne)-fy) + bot*fy) >> FixedShift

			it := sample - int64(ref.Pix[ry*ref.Stride+rx])<<FixedShift
			gx := int64(grad.X[ry*grad.Width+rx])
			gy := int64(grad.Y[ry*grad.Width+rx])

			sx += gx * it
			sy += gy * it
			sxx += gx * gx
			sxy += gx * gy
			syy += gy * gy
		}
	}

	det := sxx*syy - sxy*sxy
	if det > -minDeterminant && det < minDeterminant {
		return Point{}, ErrIllConditioned
	}
	du := (-sx*syy + sy*sxy) / det * GradientGain
	dv := (-sy*sxx + sx*sxy) / det * GradientGain
	return Point{X: clampStep(du), Y: clampStep(dv)}, nil
}

func clampStep(v int64) Fixed {
	if v > int64(maxStep) {
		return maxStep
	}
	if v < -int64(maxStep) {
		return -maxStep
	}
	return Fixed(v)
}

// FloatArithmetic is the float64 reference backend. It follows the same tap
// rules as FixedArithmetic and converts the update to Q14 on return.
type FloatArithmetic struct{}

func (FloatArithmetic) Step(ref, cur *Image, grad *GradientField, ox, oy, radius int, d Point) (Point, error) {
	w, h := ref.Width, ref.Height
	dx, dy := d.X.Float(), d.Y.Float()
	var sx, sy, sxx, sxy, syy float64

	for wy := -radius; wy <= radius; wy++ {
		ry := oy + wy
		if ry < 1 || ry > h-2 {
			continue
		}
		py := float64(ry) + dy
		iy := int(math.Floor(py))
		fy := py - float64(iy)
		if iy < 0 || iy+1 > cur.Height-1 {
			continue
		}
		for wx := -radius; wx <= radius; wx++ {
			rx := ox + wx
			if rx < 1 || rx > w-2 {
				continue
			}
			px := float64(rx) + dx
			ix := int(math.Floor(px))
			fx := px - float64(ix)
			if ix < 0 || ix+1 > cur.Width-1 {
				continue
			}

			i0 := iy*cur.Stride + ix
			i1 := i0 + cur.Stride
			top := float64(cur.Pix[i0])*(1-fx) + float64(cur.Pix[i0+1])*fx
			bot := float64(cur.Pix[i1])*(1-fx) + float64(cur.Pix[i1+1])*fx
			it := top*(1-fy) + bot*fy - float64(ref.Pix[ry*ref.Stride+rx])

			gx := float64(grad.X[ry*grad.Width+rx])
			gy := float64(grad.Y[ry*grad.Width+rx])
			sx += gx * it
			sy += gy * it
			sxx += gx * gx
			sxy += gx * gy
			syy += gy * gy
		}
	}

	det := sxx*syy - sxy*sxy
	if math.Abs(det) < minDeterminant {
		return Point{}, ErrIllConditioned
	}
	du := (-sx*syy + sy*sxy) / det * GradientGain
	dv := (-sy*sxx + sx*sxy) / det * GradientGain
	return Point{X: clampStepFloat(du), Y: clampStepFloat(dv)}, nil
}

func clampStepFloat(v float64) Fixed {
	limit := maxStep.Float()
	return FixedFromFloat(math.Max(-limit, math.Min(limit, v)))
}

// LevelTracker refines one point on one pyramid level.
type LevelTracker struct {
	radius        int
	maxIterations int
	epsilon       Fixed
	arith         Arithmetic
}

func NewLevelTracker(cfg Config) (*LevelTracker, error) {
	arith, err := NewArithmetic(cfg.Arithmetic)
	if err != nil {
		return nil, err
	}
	return &LevelTracker{
		radius:        cfg.WindowSize / 2,
		maxIterations: cfg.MaxIterations,
		epsilon:       cfg.Epsilon,
		arith:         arith,
	}, nil
}

// windowInBounds reports whether a window of radius r around the reference
// pixel (ox, oy), and the same window displaced by d in cur, fit the images.
func (t *LevelTracker) windowInBounds(ref, cur *Image, ox, oy int, d Point) bool {
	r := t.radius
	if ox-r < 0 || ox+r > ref.Width-1 || oy-r < 0 || oy+r > ref.Height-1 {
		return false
	}
	ix := (FixedFromInt(ox) + d.X).Int()
	iy := (FixedFromInt(oy) + d.Y).Int()
	return ix-r >= 0 && ix+r+1 <= cur.Width-1 && iy-r >= 0 && iy+r+1 <= cur.Height-1
}

// Track refines guess, a level-space estimate of where the feature at origin
// has moved to in cur. The reference window stays on the integer part of
// origin while the displacement guess-origin is iterated.
//
// Running out of iterations is not a failure: the last estimate is returned
// with State StateIterating and a nil Err. Failures carry the bare
// ErrBoundsViolation or ErrIllConditioned sentinel.
func (t *LevelTracker) Track(ref, cur *Image, grad *GradientField, origin, guess Point) LevelResult {
	ox, oy := origin.X.Int(), origin.Y.Int()
	d := guess.Sub(origin)
	res := LevelResult{State: StateIterating}

	for res.Iterations < t.maxIterations {
		if !t.windowInBounds(ref, cur, ox, oy, d) {
			return t.fail(res, ErrBoundsViolation)
		}
		step, err := t.arith.Step(ref, cur, grad, ox, oy, t.radius, d)
		res.Iterations++
		if err != nil {
			return t.fail(res, err)
		}
		d = d.Add(step)
		if step.X.Abs() < t.epsilon && step.Y.Abs() < t.epsilon {
			res.State = StateConverged
			break
		}
	}

	pos := origin.Add(d)
	if pos.X < 0 || pos.Y < 0 || pos.X.Int() > cur.Width-1 || pos.Y.Int() > cur.Height-1 {
		return t.fail(res, ErrBoundsViolation)
	}
	res.Pos = pos
	return res
}

func (t *LevelTracker) fail(res LevelResult, err error) LevelResult {
	res.Pos = InvalidPoint
	res.State = StateFailed
	res.Err = err
	return res
}
