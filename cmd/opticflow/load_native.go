//go:build !purego && !js

package main

import (
	"fmt"

	"gocv.io/x/gocv"

	"opticflow/pkg/opticflow"
)

// loadFrame decodes an image file with OpenCV into interleaved RGB.
func loadFrame(path string) ([]byte, opticflow.PixelLayout, int, int, error) {
	src := gocv.IMRead(path, gocv.IMReadColor)
	if src.Empty() {
		return nil, 0, 0, 0, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()

	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)

	return rgb.ToBytes(), opticflow.LayoutRGB, rgb.Cols(), rgb.Rows(), nil
}
