package opticflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPyramidTracker(t *testing.T, cfg Config) *PyramidTracker {
	t.Helper()
	pt, err := NewPyramidTracker(cfg)
	require.NoError(t, err)
	return pt
}

func TestPyramidTracker_IdenticalFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Levels = 3
	p, g := buildLevels(t, testWidth, testHeight, cfg.Levels, sceneFrame(testWidth, testHeight, 0, 0))
	pt := newTestPyramidTracker(t, cfg)

	for _, seed := range []Point{Pt(85, 27), Pt(69, 37), Pt(100, 44), Pt(40, 40)} {
		res := pt.Track(p, p, g, seed)
		require.True(t, res.Valid, "seed %v: %v", seed, res.Err)
		d := res.Displacement()
		assert.Less(t, d.X.Abs(), cfg.Epsilon, "seed %v", seed)
		assert.Less(t, d.Y.Abs(), cfg.Epsilon, "seed %v", seed)
		for l, lr := range pt.Trace {
			assert.Equal(t, StateConverged, lr.State, "level %d", l)
		}
	}
}

func TestPyramidTracker_VerticalShift(t *testing.T) {
	cfg := DefaultConfig()
	ref, g := buildLevels(t, testWidth, testHeight, cfg.Levels, sceneFrame(testWidth, testHeight, 0, 0))

	for _, shift := range []int{6, -6} {
		cur, _ := buildLevels(t, testWidth, testHeight, cfg.Levels, sceneFrame(testWidth, testHeight, 0, shift))
		for _, arith := range []string{ArithmeticFixed, ArithmeticFloat} {
			cfg.Arithmetic = arith
			pt := newTestPyramidTracker(t, cfg)
			for _, seed := range []Point{Pt(85, 27), Pt(69, 37), Pt(85, 53), Pt(100, 44)} {
				res := pt.Track(ref, cur, g, seed)
				require.True(t, res.Valid, "%s seed %v: %v", arith, seed, res.Err)
				d := res.Displacement()
				assert.InDelta(t, 0, d.X.Float(), 0.1, "%s seed %v", arith, seed)
				assert.InDelta(t, float64(shift), d.Y.Float(), 0.1, "%s seed %v", arith, seed)
			}
		}
	}
}

func TestPyramidTracker_CoarseFailureAborts(t *testing.T) {
	cfg := DefaultConfig()
	p, g := buildLevels(t, testWidth, testHeight, cfg.Levels, sceneFrame(testWidth, testHeight, 0, 0))
	pt := newTestPyramidTracker(t, cfg)

	seed := Pt(2, 45)
	res := pt.Track(p, p, g, seed)
	assert.False(t, res.Valid)
	assert.Equal(t, seed, res.Input)
	assert.Equal(t, InvalidPoint, res.Output)
	assert.ErrorIs(t, res.Err, ErrTrackingAborted)
	assert.ErrorIs(t, res.Err, ErrBoundsViolation)
	assert.Contains(t, res.Err.Error(), "level 1")
	assert.Equal(t, Point{}, res.Displacement())
}

func TestPyramidTracker_SingularAborts(t *testing.T) {
	cfg := DefaultConfig()
	p, g := buildLevels(t, testWidth, testHeight, cfg.Levels, uniformFrame(testWidth, testHeight, 100))
	pt := newTestPyramidTracker(t, cfg)

	res := pt.Track(p, p, g, Pt(80, 45))
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrTrackingAborted)
	assert.ErrorIs(t, res.Err, ErrIllConditioned)
}

func TestPyramidTracker_AbortErrorIsReused(t *testing.T) {
	cfg := DefaultConfig()
	p, g := buildLevels(t, testWidth, testHeight, cfg.Levels, sceneFrame(testWidth, testHeight, 0, 0))
	u, ug := buildLevels(t, testWidth, testHeight, cfg.Levels, uniformFrame(testWidth, testHeight, 100))
	pt := newTestPyramidTracker(t, cfg)

	res := pt.Track(p, p, g, Pt(2, 45))
	var abort *AbortError
	require.ErrorAs(t, res.Err, &abort)
	assert.Equal(t, 1, abort.Level)
	assert.Equal(t, ErrBoundsViolation, abort.Reason)
	assert.Same(t, abort, pt.Track(p, p, g, Pt(2, 45)).Err)

	res = pt.Track(u, u, ug, Pt(80, 45))
	require.ErrorAs(t, res.Err, &abort)
	assert.Equal(t, ErrIllConditioned, abort.Reason)

	allocs := testing.AllocsPerRun(10, func() {
		res = pt.Track(p, p, g, Pt(2, 45))
		res = pt.Track(u, u, ug, Pt(80, 45))
	})
	assert.Zero(t, allocs)
	assert.False(t, res.Valid)
}

func TestPyramidTracker_AbortUnknownReason(t *testing.T) {
	pt := newTestPyramidTracker(t, DefaultConfig())
	other := errors.New("other")

	err := pt.abort(0, other)
	assert.ErrorIs(t, err, ErrTrackingAborted)
	assert.ErrorIs(t, err, other)
	assert.ErrorIs(t, pt.abort(7, ErrBoundsViolation), ErrBoundsViolation)
}
