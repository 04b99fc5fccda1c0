package opticflow

import (
	"bytes"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFlowOverlayBytes(t *testing.T) {
	quietLogs(t)
	e, err := NewEstimator(DefaultConfig())
	require.NoError(t, err)
	rep, err := e.Estimate(sceneFrame(testWidth, testHeight, 0, 0), sceneFrame(testWidth, testHeight, 0, 6), LayoutGray)
	require.NoError(t, err)
	prev, _ := e.LastPair()

	data, err := RenderFlowOverlayBytes(prev.Level(0), rep)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, testWidth*overlayScale, img.Bounds().Dx())
	assert.Equal(t, testHeight*overlayScale+40, img.Bounds().Dy())
}

func TestRenderFlowOverlay_File(t *testing.T) {
	ref := normalized(testWidth, testHeight, uniformFrame(testWidth, testHeight, 100))
	rep := &Report{
		Features: []FeaturePoint{{Pos: Pt(80, 45)}},
		Results:  []FlowResult{{Input: Pt(80, 45), Output: InvalidPoint}},
		Fallback: true,
	}
	path := filepath.Join(t.TempDir(), "overlay.jpg")
	require.NoError(t, RenderFlowOverlay(ref, rep, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestRenderFlowOverlay_NoData(t *testing.T) {
	_, err := RenderFlowOverlayBytes(nil, &Report{})
	assert.Error(t, err)
	_, err = RenderFlowOverlayBytes(NewImage(4, 4), nil)
	assert.Error(t, err)
}
