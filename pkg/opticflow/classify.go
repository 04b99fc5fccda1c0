package opticflow

import "math"

// ClassifierConfig holds the aggregation policy and its noise threshold.
type ClassifierConfig struct {
	Policy    Policy
	Threshold Fixed
}

// compassSectors lists the 45 degree sectors starting at 0 degrees (pointing
// right) and turning clockwise on screen, since image y grows downward.
var compassSectors = [8]Direction{
	DirRight, DirDownRight, DirDown, DirDownLeft,
	DirLeft, DirUpLeft, DirUp, DirUpRight,
}

// Aggregate sums the displacements of the valid results and classifies the
// sum. Invalid results are skipped; with no valid result the direction is
// DirUnknown.
func Aggregate(results []FlowResult, c ClassifierConfig) Motion {
	m := Motion{Total: len(results)}

	var sumX, sumY int64
	for _, r := range results {
		if !r.Valid || r.Output.IsInvalid() {
			continue
		}
		d := r.Displacement()
		sumX += int64(d.X)
		sumY += int64(d.Y)
		m.Valid++
	}
	if m.Valid == 0 {
		return m
	}

	m.Sum = Point{X: saturate(sumX), Y: saturate(sumY)}
	m.Mean = Point{X: Fixed(sumX / int64(m.Valid)), Y: Fixed(sumY / int64(m.Valid))}
	m.Magnitude = math.Hypot(m.Sum.X.Float(), m.Sum.Y.Float())
	m.AngleDeg = angleDeg(m.Sum)
	m.Direction = Classify(m.Sum, c)
	return m
}

// Classify labels a motion vector according to the policy.
func Classify(v Point, c ClassifierConfig) Direction {
	switch c.Policy {
	case PolicyCompass:
		if math.Hypot(float64(v.X), float64(v.Y)) < float64(c.Threshold) {
			return DirUnknown
		}
		sector := int(math.Mod(angleDeg(v)+22.5, 360) / 45)
		return compassSectors[sector%8]
	default:
		switch {
		case v.Y < -c.Threshold:
			return DirUp
		case v.Y > c.Threshold:
			return DirDown
		}
		return DirUnknown
	}
}

// angleDeg returns atan2(y, x) in degrees normalized to [0, 360).
func angleDeg(v Point) float64 {
	a := math.Atan2(float64(v.Y), float64(v.X)) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

func saturate(v int64) Fixed {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return Fixed(v)
}
