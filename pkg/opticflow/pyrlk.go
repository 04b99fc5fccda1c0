package opticflow

// levelFailures lists the errors LevelTracker.Track can fail with.
var levelFailures = [...]error{ErrBoundsViolation, ErrIllConditioned}

// PyramidTracker runs the LevelTracker coarse to fine over a pyramid pair.
type PyramidTracker struct {
	level *LevelTracker
	// Trace receives the per-level outcome of the last Track call, coarsest
	// level last. It is sized once for the configured level count.
	Trace []LevelResult

	// aborts holds one AbortError per level and failure so a lost feature
	// costs no allocation.
	aborts [][len(levelFailures)]AbortError
}

func NewPyramidTracker(cfg Config) (*PyramidTracker, error) {
	lt, err := NewLevelTracker(cfg)
	if err != nil {
		return nil, err
	}
	t := &PyramidTracker{
		level:  lt,
		Trace:  make([]LevelResult, cfg.Levels),
		aborts: make([][len(levelFailures)]AbortError, cfg.Levels),
	}
	for l := range t.aborts {
		for i, reason := range levelFailures {
			t.aborts[l][i] = AbortError{Level: l, Reason: reason}
		}
	}
	return t, nil
}

// Track follows the full-resolution seed from ref into cur. A failure on any
// level aborts the whole track and yields an invalid result whose Err is an
// *AbortError.
func (t *PyramidTracker) Track(ref, cur *Pyramid, grads *Gradients, seed Point) FlowResult {
	top := ref.NumLevels() - 1
	estimate := seed.Shr(top)

	for l := top; l >= 0; l-- {
		res := t.level.Track(ref.Level(l), cur.Level(l), grads.Level(l), seed.Shr(l), estimate)
		if l < len(t.Trace) {
			t.Trace[l] = res
		}
		if res.State == StateFailed {
			return FlowResult{
				Input:  seed,
				Output: InvalidPoint,
				Err:    t.abort(l, res.Err),
			}
		}
		estimate = res.Pos
		if l > 0 {
			estimate = estimate.Shl(1)
		}
	}
	return FlowResult{Input: seed, Output: estimate, Valid: true}
}

func (t *PyramidTracker) abort(level int, reason error) error {
	if level < len(t.aborts) {
		for i := range t.aborts[level] {
			if e := &t.aborts[level][i]; e.Reason == reason {
				return e
			}
		}
	}
	return &AbortError{Level: level, Reason: reason}
}
