package opticflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureSelector_Scene(t *testing.T) {
	cfg := DefaultConfig()
	_, g := buildLevels(t, testWidth, testHeight, 1, sceneFrame(testWidth, testHeight, 0, 0))

	s := NewFeatureSelector(cfg)
	out := make([]FeaturePoint, cfg.MaxFeatures)
	n, err := s.Select(g.Level(0), CenterRegion(testWidth, testHeight, cfg.SearchRadius), out)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	want := []FeaturePoint{
		{Pos: Pt(85, 27), Score: 242},
		{Pos: Pt(69, 37), Score: 242},
		{Pos: Pt(85, 53), Score: 242},
		{Pos: Pt(100, 44), Score: 230},
	}
	assert.Equal(t, want, out[:n])
}

func TestFeatureSelector_Properties(t *testing.T) {
	_, g := buildLevels(t, testWidth, testHeight, 1, sceneFrame(testWidth, testHeight, 3, 5))

	tests := []struct {
		name        string
		maxFeatures int
		minDistance int
		region      Region
	}{
		{"whole image", 64, 10, Region{}},
		{"tight distance", 64, 3, Region{}},
		{"center region", 8, 6, CenterRegion(testWidth, testHeight, 15)},
		{"corner region", 5, 4, Region{CenterX: 20, CenterY: 20, Radius: 12}},
		{"single", 1, 0, Region{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxFeatures = tt.maxFeatures
			cfg.MinDistance = tt.minDistance
			s := NewFeatureSelector(cfg)
			out := make([]FeaturePoint, cfg.MaxFeatures)

			n, err := s.Select(g.Level(0), tt.region, out)
			require.NoError(t, err)
			require.Positive(t, n)
			assert.LessOrEqual(t, n, tt.maxFeatures)

			for i := 0; i < n; i++ {
				xi, yi := out[i].Pos.X.Int(), out[i].Pos.Y.Int()
				assert.True(t, tt.region.Contains(xi, yi), "feature %d at (%d,%d) outside region", i, xi, yi)
				assert.Greater(t, out[i].Score, cfg.MinScore)
				if i > 0 {
					assert.LessOrEqual(t, out[i].Score, out[i-1].Score, "ranked by score")
				}
				for j := 0; j < i; j++ {
					dx := xi - out[j].Pos.X.Int()
					dy := yi - out[j].Pos.Y.Int()
					assert.GreaterOrEqual(t, dx*dx+dy*dy, tt.minDistance*tt.minDistance,
						"features %d and %d too close", i, j)
				}
			}
		})
	}
}

func TestFeatureSelector_NoFeature(t *testing.T) {
	cfg := DefaultConfig()
	_, g := buildLevels(t, testWidth, testHeight, 1, uniformFrame(testWidth, testHeight, 100))

	s := NewFeatureSelector(cfg)
	out := make([]FeaturePoint, cfg.MaxFeatures)
	n, err := s.Select(g.Level(0), Region{}, out)
	assert.ErrorIs(t, err, ErrNoFeature)
	assert.Zero(t, n)
}

func TestFeatureSelector_MarginKeepsWindowsInside(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 7
	_, g := buildLevels(t, testWidth, testHeight, 1, sceneFrame(testWidth, testHeight, 0, 0))

	s := NewFeatureSelector(cfg)
	out := make([]FeaturePoint, 64)
	n, err := s.Select(g.Level(0), Region{}, out)
	require.NoError(t, err)
	for _, f := range out[:n] {
		x, y := f.Pos.X.Int(), f.Pos.Y.Int()
		assert.GreaterOrEqual(t, x, 3)
		assert.GreaterOrEqual(t, y, 3)
		assert.LessOrEqual(t, x, testWidth-4)
		assert.LessOrEqual(t, y, testHeight-4)
	}
}

func TestIsqrt(t *testing.T) {
	for _, v := range []int64{0, 1, 2, 3, 4, 15, 16, 17, 1 << 40, 1<<62 - 1} {
		r := isqrt(v)
		assert.LessOrEqual(t, r*r, v)
		assert.Greater(t, (r+1)*(r+1), v)
	}
	assert.Zero(t, isqrt(-5))
}

func TestMinEigen(t *testing.T) {
	// diag(9, 4): eigenvalues 9 and 4
	assert.Equal(t, int64(4), minEigen(9, 0, 4))
	// rank one: all gradients parallel
	assert.Equal(t, int64(0), minEigen(1, 1, 1))
}
