package opticflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Arithmetic backend names accepted by Config.Arithmetic.
const (
	ArithmeticFixed = "fixed"
	ArithmeticFloat = "float"
)

// Config fixes every size and threshold of the pipeline at construction time.
type Config struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Levels int `json:"levels"`

	// Level Tracker
	WindowSize    int    `json:"window_size"`
	MaxIterations int    `json:"max_iterations"`
	Epsilon       Fixed  `json:"epsilon"`
	Arithmetic    string `json:"arithmetic"`

	// Feature Selector
	FeatureWindow int   `json:"feature_window"`
	MinScore      int64 `json:"min_score"`
	MinDistance   int   `json:"min_distance"`
	MaxFeatures   int   `json:"max_features"`
	SearchRadius  int   `json:"search_radius"` // <= 0 searches the whole image

	// Classifier
	Policy    Policy `json:"policy"`
	Threshold Fixed  `json:"threshold"`

	// PreBlur smooths the normalized frame with a 3x3 binomial kernel before
	// the pyramid is built.
	PreBlur bool `json:"pre_blur"`

	// DebugDir, when set to an existing directory, receives the pyramid
	// levels and per-frame tracking logs of every processed frame.
	DebugDir string `json:"debug_dir,omitempty"`
}

// DefaultConfig returns the 160x90 two-level configuration.
func DefaultConfig() Config {
	return Config{
		Width:         160,
		Height:        90,
		Levels:        2,
		WindowSize:    5,
		MaxIterations: 5,
		Epsilon:       1 << 11,
		Arithmetic:    ArithmeticFixed,
		FeatureWindow: 3,
		MinScore:      100,
		MinDistance:   15,
		MaxFeatures:   4,
		SearchRadius:  20,
		Policy:        PolicySingleAxis,
		Threshold:     205,
	}
}

// Validate checks the configuration for values the fixed-size buffers and
// int64 accumulators cannot handle.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.Levels < 1 || c.Levels > 8 {
		return fmt.Errorf("%w: levels must be in [1, 8], got %d", ErrInvalidConfig, c.Levels)
	}
	if c.WindowSize < 3 || c.WindowSize > 7 || c.WindowSize%2 == 0 {
		return fmt.Errorf("%w: window_size must be 3, 5 or 7, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.FeatureWindow < 3 || c.FeatureWindow > 7 || c.FeatureWindow%2 == 0 {
		return fmt.Errorf("%w: feature_window must be 3, 5 or 7, got %d", ErrInvalidConfig, c.FeatureWindow)
	}
	minDim := c.WindowSize + 2
	if c.Width>>uint(c.Levels-1) < minDim || c.Height>>uint(c.Levels-1) < minDim {
		return fmt.Errorf("%w: coarsest level %dx%d is smaller than the %dx%d tracking window",
			ErrInvalidConfig, c.Width>>uint(c.Levels-1), c.Height>>uint(c.Levels-1), minDim, minDim)
	}
	if c.MaxIterations < 1 || c.MaxIterations > 100 {
		return fmt.Errorf("%w: max_iterations must be in [1, 100], got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive", ErrInvalidConfig)
	}
	if c.MaxFeatures < 1 || c.MaxFeatures > 64 {
		return fmt.Errorf("%w: max_features must be in [1, 64], got %d", ErrInvalidConfig, c.MaxFeatures)
	}
	if c.MinDistance < 0 {
		return fmt.Errorf("%w: min_distance must not be negative", ErrInvalidConfig)
	}
	if c.MinScore < 0 {
		return fmt.Errorf("%w: min_score must not be negative", ErrInvalidConfig)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("%w: threshold must not be negative", ErrInvalidConfig)
	}
	if c.Policy != PolicySingleAxis && c.Policy != PolicyCompass {
		return fmt.Errorf("%w: unknown policy %d", ErrInvalidConfig, int(c.Policy))
	}
	if c.Arithmetic != ArithmeticFixed && c.Arithmetic != ArithmeticFloat {
		return fmt.Errorf("%w: arithmetic must be %q or %q, got %q",
			ErrInvalidConfig, ArithmeticFixed, ArithmeticFloat, c.Arithmetic)
	}
	return nil
}

// ClassifierConfig extracts the aggregation settings.
func (c Config) ClassifierConfig() ClassifierConfig {
	return ClassifierConfig{Policy: c.Policy, Threshold: c.Threshold}
}

// LoadConfig reads a JSON configuration file. Fields omitted from the file
// keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return Config{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
