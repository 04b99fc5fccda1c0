package opticflow

// Luma weights in percent: 0.30 R + 0.59 G + 0.11 B.
const (
	lumaR = 30
	lumaG = 59
	lumaB = 11
)

// contrastLUT maps a luma value through the fixed contrast stretch: values
// below 128 are scaled by 3/4, the rest by 5/4 and clamped to 255.
var contrastLUT = buildContrastLUT()

func buildContrastLUT() [256]uint8 {
	var lut [256]uint8
	for v := 0; v < 256; v++ {
		if v < 128 {
			lut[v] = uint8(v * 3 / 4)
			continue
		}
		s := v * 5 / 4
		if s > 255 {
			s = 255
		}
		lut[v] = uint8(s)
	}
	return lut
}

// Contrast applies the fixed contrast stretch to one luma value.
func Contrast(v uint8) uint8 { return contrastLUT[v] }

func luma(r, g, b int) uint8 {
	return uint8((r*lumaR + g*lumaG + b*lumaB) / 100)
}

// rgb565Luma expands a packed 5-6-5 pixel to 8-bit channels and returns its luma.
func rgb565Luma(pixel uint16) uint8 {
	r := int(pixel>>11) & 0x1F
	g := int(pixel>>5) & 0x3F
	b := int(pixel) & 0x1F
	return luma(r*255/31, g*255/63, b*255/31)
}

// Normalize converts a source frame into dst's width x height intensity
// buffer and applies the contrast stretch. RGB565 pixels are read as
// little-endian byte pairs. An unknown layout or a short source buffer leaves
// dst untouched.
func Normalize(dst *Image, src []byte, layout PixelLayout) {
	n := dst.Width * dst.Height
	bpp := layout.BytesPerPixel()
	if bpp == 0 || len(src) < n*bpp {
		return
	}
	pix := dst.Pix[:n]

	switch layout {
	case LayoutGray:
		for i := 0; i < n; i++ {
			pix[i] = contrastLUT[src[i]]
		}
	case LayoutRGB:
		for i := 0; i < n; i++ {
			j := i * 3
			pix[i] = contrastLUT[luma(int(src[j]), int(src[j+1]), int(src[j+2]))]
		}
	case LayoutRGB565:
		for i := 0; i < n; i++ {
			pixel := uint16(src[2*i]) | uint16(src[2*i+1])<<8
			pix[i] = contrastLUT[rgb565Luma(pixel)]
		}
	}
}

// NormalizeRGB565 converts packed 5-6-5 pixels, as delivered by the camera
// DMA, into dst.
func NormalizeRGB565(dst *Image, src []uint16) {
	n := dst.Width * dst.Height
	if len(src) < n {
		return
	}
	pix := dst.Pix[:n]
	for i := 0; i < n; i++ {
		pix[i] = contrastLUT[rgb565Luma(src[i])]
	}
}

// Blur3x3 applies the [1 2 1; 2 4 2; 1 2 1]/16 kernel to the interior of src
// and copies the border unchanged. dst and src must not alias.
func Blur3x3(dst, src *Image) {
	w, h := src.Width, src.Height
	s, d := src.Pix, dst.Pix
	for y := 1; y < h-1; y++ {
		r0 := (y - 1) * w
		r1 := y * w
		r2 := (y + 1) * w
		for x := 1; x < w-1; x++ {
			sum := int(s[r0+x-1]) + 2*int(s[r0+x]) + int(s[r0+x+1]) +
				2*int(s[r1+x-1]) + 4*int(s[r1+x]) + 2*int(s[r1+x+1]) +
				int(s[r2+x-1]) + 2*int(s[r2+x]) + int(s[r2+x+1])
			d[r1+x] = uint8(sum >> 4)
		}
	}
	for x := 0; x < w; x++ {
		d[x] = s[x]
		d[(h-1)*w+x] = s[(h-1)*w+x]
	}
	for y := 0; y < h; y++ {
		d[y*w] = s[y*w]
		d[y*w+w-1] = s[y*w+w-1]
	}
}
