package opticflow

// Downsample writes the 2x2 box-filtered half-resolution image of src into
// dst. dst must be (src.Width>>1) x (src.Height>>1); an odd trailing row or
// column of src is dropped.
func Downsample(dst, src *Image) {
	sw := src.Stride
	s, d := src.Pix, dst.Pix
	for i := 0; i < dst.Height; i++ {
		row := (i * 2) * sw
		out := i * dst.Stride
		for j := 0; j < dst.Width; j++ {
			idx := row + j*2
			d[out+j] = uint8((int(s[idx]) + int(s[idx+1]) + int(s[idx+sw]) + int(s[idx+sw+1])) >> 2)
		}
	}
}

// Build copies base into level 0 and fills every coarser level by repeated
// halving. Level 0 is a copy so the caller may reuse base for the next frame.
func (p *Pyramid) Build(base *Image) error {
	if err := p.Levels[0].CopyFrom(base); err != nil {
		return err
	}
	for l := 1; l < len(p.Levels); l++ {
		Downsample(&p.Levels[l], &p.Levels[l-1])
	}
	return nil
}
