//go:build purego || js

package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"opticflow/pkg/opticflow"
)

// loadFrame decodes an image file with the standard decoders into
// interleaved RGB.
func loadFrame(path string) ([]byte, opticflow.PixelLayout, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	buf := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			buf = append(buf, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return buf, opticflow.LayoutRGB, w, h, nil
}
