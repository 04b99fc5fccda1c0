package opticflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"no levels", func(c *Config) { c.Levels = 0 }},
		{"too many levels", func(c *Config) { c.Levels = 9 }},
		{"even window", func(c *Config) { c.WindowSize = 4 }},
		{"large window", func(c *Config) { c.WindowSize = 9 }},
		{"even feature window", func(c *Config) { c.FeatureWindow = 2 }},
		{"coarsest level too small", func(c *Config) { c.Levels = 5 }},
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }},
		{"no features", func(c *Config) { c.MaxFeatures = 0 }},
		{"negative distance", func(c *Config) { c.MinDistance = -1 }},
		{"negative score", func(c *Config) { c.MinScore = -1 }},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }},
		{"unknown policy", func(c *Config) { c.Policy = Policy(7) }},
		{"unknown arithmetic", func(c *Config) { c.Arithmetic = "double" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_PartialMergesDefaults(t *testing.T) {
	path := writeConfig(t, "flow.json", `{
		"width": 320,
		"height": 240,
		"levels": 3,
		"policy": "compass",
		"arithmetic": "float",
		"pre_blur": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	want := DefaultConfig()
	want.Width, want.Height, want.Levels = 320, 240, 3
	want.Policy = PolicyCompass
	want.Arithmetic = ArithmeticFloat
	want.PreBlur = true
	assert.Equal(t, want, cfg)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("extension", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "flow.yaml", "{}"))
		assert.ErrorContains(t, err, ".json extension")
	})
	t.Run("missing", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "none.json"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "bad.json", "{width: 1"))
		assert.ErrorContains(t, err, "parse config JSON")
	})
	t.Run("bad policy", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "policy.json", `{"policy": "diagonal"}`))
		assert.ErrorContains(t, err, "unknown policy")
	})
	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "window.json", `{"window_size": 6}`))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
	t.Run("too large", func(t *testing.T) {
		big := `{"width": 160` + strings.Repeat(" ", 1024*1024) + `}`
		_, err := LoadConfig(writeConfig(t, "big.json", big))
		assert.ErrorContains(t, err, "too large")
	})
}

func TestPolicy_TextRoundTrip(t *testing.T) {
	for _, p := range []Policy{PolicySingleAxis, PolicyCompass} {
		text, err := p.MarshalText()
		require.NoError(t, err)
		var got Policy
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, p, got)
	}
	_, err := Policy(9).MarshalText()
	assert.Error(t, err)
}

func TestParsePixelLayout(t *testing.T) {
	for in, want := range map[string]PixelLayout{
		"gray": LayoutGray, "GREY": LayoutGray, "rgb565": LayoutRGB565, " rgb ": LayoutRGB, "3": LayoutRGB,
	} {
		got, err := ParsePixelLayout(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParsePixelLayout("yuv")
	assert.Error(t, err)
}
