package opticflow

import (
	"cmp"
	"math"
	"slices"
)

// Region is a square search area around (CenterX, CenterY). A non-positive
// Radius selects the whole image.
type Region struct {
	CenterX int
	CenterY int
	Radius  int
}

// CenterRegion returns a region of the given radius around the image center.
func CenterRegion(width, height, radius int) Region {
	return Region{CenterX: width / 2, CenterY: height / 2, Radius: radius}
}

// Contains reports whether the integer pixel (x, y) lies in the region.
func (r Region) Contains(x, y int) bool {
	if r.Radius <= 0 {
		return true
	}
	return x >= r.CenterX-r.Radius && x <= r.CenterX+r.Radius &&
		y >= r.CenterY-r.Radius && y <= r.CenterY+r.Radius
}

type candidate struct {
	x, y  int
	score int64
}

// FeatureSelector picks Shi-Tomasi corners from a gradient field. Candidate
// storage is allocated once for the configured frame size.
type FeatureSelector struct {
	window     int
	trackRad   int
	minScore   int64
	minDistSq  int
	candidates []candidate
}

func NewFeatureSelector(cfg Config) *FeatureSelector {
	return &FeatureSelector{
		window:     cfg.FeatureWindow,
		trackRad:   cfg.WindowSize / 2,
		minScore:   cfg.MinScore,
		minDistSq:  cfg.MinDistance * cfg.MinDistance,
		candidates: make([]candidate, 0, cfg.Width*cfg.Height),
	}
}

// margin is the closest a candidate may lie to the image edge: the score
// window must only see interior gradients and the level-0 tracking window
// must fit.
func (s *FeatureSelector) margin() int {
	return max(s.window/2+1, s.trackRad)
}

// Score returns the minimum eigenvalue of the second-moment matrix
// accumulated over the selector window centered on (x, y).
func (s *FeatureSelector) Score(grad *GradientField, x, y int) int64 {
	r := s.window / 2
	w := grad.Width
	var sxx, sxy, syy int64
	for dy := -r; dy <= r; dy++ {
		row := (y + dy) * w
		for dx := -r; dx <= r; dx++ {
			ix := int64(grad.X[row+x+dx])
			iy := int64(grad.Y[row+x+dx])
			sxx += ix * ix
			sxy += ix * iy
			syy += iy * iy
		}
	}
	return minEigen(sxx, sxy, syy)
}

// minEigen returns (trace - sqrt(trace^2 - 4 det)) / 2 with the
// discriminant clamped at zero.
func minEigen(sxx, sxy, syy int64) int64 {
	trace := sxx + syy
	det := sxx*syy - sxy*sxy
	disc := trace*trace - 4*det
	if disc < 0 {
		disc = 0
	}
	return (trace - isqrt(disc)) / 2
}

// isqrt returns floor(sqrt(v)) for v >= 0.
func isqrt(v int64) int64 {
	if v <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(v)))
	for r*r > v {
		r--
	}
	for (r+1)*(r+1) <= v {
		r++
	}
	return r
}

// Select writes up to len(out) features found in region into out, strongest
// first, and returns how many were written. Accepted points are pairwise at
// least MinDistance apart. ErrNoFeature is returned when no candidate clears
// the score threshold.
func (s *FeatureSelector) Select(grad *GradientField, region Region, out []FeaturePoint) (int, error) {
	m := s.margin()
	x0, x1 := m, grad.Width-1-m
	y0, y1 := m, grad.Height-1-m
	if region.Radius > 0 {
		x0 = max(x0, region.CenterX-region.Radius)
		x1 = min(x1, region.CenterX+region.Radius)
		y0 = max(y0, region.CenterY-region.Radius)
		y1 = min(y1, region.CenterY+region.Radius)
	}

	s.candidates = s.candidates[:0]
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			score := s.Score(grad, x, y)
			if score > s.minScore {
				s.candidates = append(s.candidates, candidate{x: x, y: y, score: score})
			}
		}
	}
	if len(s.candidates) == 0 {
		return 0, ErrNoFeature
	}

	slices.SortStableFunc(s.candidates, func(a, b candidate) int {
		return cmp.Compare(b.score, a.score)
	})

	n := 0
	for _, c := range s.candidates {
		if n == len(out) {
			break
		}
		if s.tooClose(out[:n], c.x, c.y) {
			continue
		}
		out[n] = FeaturePoint{Pos: Pt(c.x, c.y), Score: c.score}
		n++
	}
	return n, nil
}

func (s *FeatureSelector) tooClose(accepted []FeaturePoint, x, y int) bool {
	for _, f := range accepted {
		dx := f.Pos.X.Int() - x
		dy := f.Pos.Y.Int() - y
		if dx*dx+dy*dy < s.minDistSq {
			return true
		}
	}
	return false
}
