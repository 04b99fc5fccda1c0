package opticflow

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// overlayScale enlarges the small camera frames so vectors stay readable.
const overlayScale = 4

var (
	featureColor = color.RGBA{80, 200, 255, 255}
	flowColor    = color.RGBA{255, 80, 80, 255}
	lostColor    = color.RGBA{255, 200, 0, 255}
	textColor    = color.RGBA{220, 220, 220, 255}
)

// RenderFlowOverlay draws the reference frame with its features, flow
// vectors and the motion label, and writes it to outputPath as JPEG.
func RenderFlowOverlay(ref *Image, rep *Report, outputPath string) error {
	img, err := renderFlowImage(ref, rep)
	if err != nil {
		return err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()

	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// RenderFlowOverlayBytes is RenderFlowOverlay returning the JPEG bytes.
func RenderFlowOverlayBytes(ref *Image, rep *Report) ([]byte, error) {
	img, err := renderFlowImage(ref, rep)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderFlowImage(ref *Image, rep *Report) (*image.RGBA, error) {
	if ref == nil || rep == nil {
		return nil, fmt.Errorf("no flow data to render")
	}

	imgW := ref.Width * overlayScale
	imgH := ref.Height * overlayScale
	const summaryH = 40
	img := image.NewRGBA(image.Rect(0, 0, imgW, imgH+summaryH))

	for y := 0; y < imgH; y++ {
		for x := 0; x < imgW; x++ {
			v := ref.At(x/overlayScale, y/overlayScale)
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	for y := imgH; y < imgH+summaryH; y++ {
		for x := 0; x < imgW; x++ {
			img.SetRGBA(x, y, color.RGBA{0, 0, 0, 255})
		}
	}

	toScreen := func(p Point) (int, int) {
		return int(p.X.Float()*overlayScale + overlayScale/2), int(p.Y.Float()*overlayScale + overlayScale/2)
	}

	for _, f := range rep.Features {
		x, y := toScreen(f.Pos)
		drawCircle(img, x, y, 2*overlayScale, featureColor)
	}
	for _, r := range rep.Results {
		x0, y0 := toScreen(r.Input)
		if !r.Valid {
			drawCross(img, x0, y0, overlayScale, lostColor)
			continue
		}
		x1, y1 := toScreen(r.Output)
		drawLine(img, x0, y0, x1, y1, flowColor)
		drawArrowHead(img, x0, y0, x1, y1, flowColor)
	}

	face := basicfont.Face7x13
	m := rep.Motion
	line1 := fmt.Sprintf("%s  dx=%.2f dy=%.2f", m.Direction, m.Sum.X.Float(), m.Sum.Y.Float())
	line2 := fmt.Sprintf("valid %d/%d  |v|=%.2f  angle=%.1f", m.Valid, m.Total, m.Magnitude, m.AngleDeg)
	if rep.Fallback {
		line2 += "  [CENTER FALLBACK]"
	}
	drawText(img, face, line1, 8, imgH+15, textColor)
	drawText(img, face, line2, 8, imgH+32, textColor)

	return img, nil
}

func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline with the midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x, y, e := radius, 0, 0
	for x >= y {
		for _, p := range [8][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			img.Set(cx+p[0], cy+p[1], c)
		}
		y++
		e += 1 + 2*y
		if 2*(e-x)+1 > 0 {
			x--
			e += 1 - 2*x
		}
	}
}

func drawCross(img *image.RGBA, cx, cy, size int, c color.RGBA) {
	drawLine(img, cx-size, cy-size, cx+size, cy+size, c)
	drawLine(img, cx-size, cy+size, cx+size, cy-size, c)
}

// drawLine draws a 2px Bresenham line.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.Set(x0, y0, c)
		img.Set(x0+1, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func drawArrowHead(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := float64(x1 - x0)
	dy := float64(y1 - y0)
	length := math.Hypot(dx, dy)
	if length < 1 {
		return
	}
	dx /= length
	dy /= length

	sz := math.Min(10, length/2)
	px := float64(x1) - dx*sz
	py := float64(y1) - dy*sz
	drawLine(img, x1, y1, int(px+dy*sz*0.5), int(py-dx*sz*0.5), c)
	drawLine(img, x1, y1, int(px-dy*sz*0.5), int(py+dx*sz*0.5), c)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
