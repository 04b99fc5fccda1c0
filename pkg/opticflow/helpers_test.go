package opticflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testWidth  = 160
	testHeight = 90
)

// sceneAt is a product of sines with a 32 pixel period. Its values stay in
// [8, 120] so the contrast stretch is linear over the whole scene.
func sceneAt(x, y float64) uint8 {
	v := 64 + 56*math.Sin(2*math.Pi*x/32)*math.Sin(2*math.Pi*y/32)
	return uint8(math.Round(v))
}

// sceneFrame renders the scene translated by (dx, dy) pixels as a gray frame.
func sceneFrame(w, h, dx, dy int) []byte {
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf[y*w+x] = sceneAt(float64(x-dx), float64(y-dy))
		}
	}
	return buf
}

func uniformFrame(w, h int, v uint8) []byte {
	buf := make([]byte, w*h)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

// normalized converts a gray frame into an Image the way the Estimator does.
func normalized(w, h int, frame []byte) *Image {
	img := NewImage(w, h)
	Normalize(img, frame, LayoutGray)
	return img
}

// buildLevels returns the pyramid and gradients of a gray frame.
func buildLevels(t *testing.T, w, h, levels int, frame []byte) (*Pyramid, *Gradients) {
	t.Helper()
	p := NewPyramid(w, h, levels)
	require.NoError(t, p.Build(normalized(w, h, frame)))
	g := NewGradients(w, h, levels)
	g.Build(p)
	return p, g
}

func quietLogs(t *testing.T) {
	t.Helper()
	original := Logf
	SetLogger(nil)
	t.Cleanup(func() { Logf = original })
}
