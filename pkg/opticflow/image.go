package opticflow

import (
	"fmt"
	"image"
)

// Image is a single-channel 8-bit intensity buffer with Stride == Width.
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewImage allocates a standalone image. Pipeline buffers come from an Arena.
func NewImage(width, height int) *Image {
	return &Image{Width: width, Height: height, Stride: width, Pix: make([]uint8, width*height)}
}

func (m *Image) At(x, y int) uint8 { return m.Pix[y*m.Stride+x] }

func (m *Image) Set(x, y int, v uint8) { m.Pix[y*m.Stride+x] = v }

func (m *Image) Fill(v uint8) {
	for i := range m.Pix {
		m.Pix[i] = v
	}
}

// CopyFrom copies src into m. Both images must have the same dimensions.
func (m *Image) CopyFrom(src *Image) error {
	if m.Width != src.Width || m.Height != src.Height {
		return fmt.Errorf("copy %dx%d into %dx%d: %w", src.Width, src.Height, m.Width, m.Height, ErrFrameSize)
	}
	copy(m.Pix[:m.Width*m.Height], src.Pix[:src.Width*src.Height])
	return nil
}

// Gray returns a copy of the image as an *image.Gray.
func (m *Image) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		copy(g.Pix[y*g.Stride:y*g.Stride+m.Width], m.Pix[y*m.Stride:y*m.Stride+m.Width])
	}
	return g
}

// Pyramid holds progressively halved images; level 0 is full resolution.
type Pyramid struct {
	Levels []Image
}

func (p *Pyramid) NumLevels() int { return len(p.Levels) }

func (p *Pyramid) Level(l int) *Image { return &p.Levels[l] }

// GradientField holds the horizontal and vertical gradients of one level.
// The one-pixel border is always zero.
type GradientField struct {
	Width  int
	Height int
	X      []int16
	Y      []int16
}

// Gradients holds one GradientField per pyramid level.
type Gradients struct {
	Levels []GradientField
}

func (g *Gradients) Level(l int) *GradientField { return &g.Levels[l] }

// Arena owns every buffer the pipeline touches per frame: one normalizer
// buffer, a blur scratch buffer, two pyramids and one gradient set. All
// images are index views into two backing slices sized once.
type Arena struct {
	pix  []uint8
	grad []int16

	Gray     Image
	Scratch  Image
	Pyramids [2]Pyramid
	Grads    Gradients
}

// levelDims returns the dimensions of level l for a width x height base.
func levelDims(width, height, l int) (int, int) {
	return width >> uint(l), height >> uint(l)
}

// NewArena sizes all buffers for the given frame size and level count.
func NewArena(width, height, levels int) (*Arena, error) {
	if width <= 0 || height <= 0 || levels < 1 {
		return nil, fmt.Errorf("%w: arena %dx%d with %d levels", ErrInvalidConfig, width, height, levels)
	}

	pyramidSize := 0
	for l := 0; l < levels; l++ {
		w, h := levelDims(width, height, l)
		if w == 0 || h == 0 {
			return nil, fmt.Errorf("%w: level %d of %dx%d is empty", ErrInvalidConfig, l, width, height)
		}
		pyramidSize += w * h
	}
	frameSize := width * height

	a := &Arena{
		pix:  make([]uint8, 2*frameSize+2*pyramidSize),
		grad: make([]int16, 2*pyramidSize),
	}

	off := 0
	view := func(w, h int) Image {
		img := Image{Width: w, Height: h, Stride: w, Pix: a.pix[off : off+w*h : off+w*h]}
		off += w * h
		return img
	}
	a.Gray = view(width, height)
	a.Scratch = view(width, height)
	for i := range a.Pyramids {
		a.Pyramids[i].Levels = make([]Image, levels)
		for l := 0; l < levels; l++ {
			w, h := levelDims(width, height, l)
			a.Pyramids[i].Levels[l] = view(w, h)
		}
	}

	goff := 0
	a.Grads.Levels = make([]GradientField, levels)
	for l := 0; l < levels; l++ {
		w, h := levelDims(width, height, l)
		n := w * h
		a.Grads.Levels[l] = GradientField{
			Width:  w,
			Height: h,
			X:      a.grad[goff : goff+n : goff+n],
			Y:      a.grad[goff+n : goff+2*n : goff+2*n],
		}
		goff += 2 * n
	}
	return a, nil
}

// NewPyramid allocates a standalone pyramid, mainly for tests and tools.
func NewPyramid(width, height, levels int) *Pyramid {
	p := &Pyramid{Levels: make([]Image, levels)}
	for l := 0; l < levels; l++ {
		w, h := levelDims(width, height, l)
		p.Levels[l] = *NewImage(w, h)
	}
	return p
}

// NewGradients allocates a standalone gradient set matching a pyramid shape.
func NewGradients(width, height, levels int) *Gradients {
	g := &Gradients{Levels: make([]GradientField, levels)}
	for l := 0; l < levels; l++ {
		w, h := levelDims(width, height, l)
		g.Levels[l] = GradientField{Width: w, Height: h, X: make([]int16, w*h), Y: make([]int16, w*h)}
	}
	return g
}
