package opticflow

// GradientGain is the response of the halved Sobel kernel to a unit ramp.
const GradientGain = 4

// ComputeGradient fills g with the 3x3 Sobel gradients of img, halved with an
// arithmetic shift. Border pixels are set to zero.
func ComputeGradient(g *GradientField, img *Image) {
	w, h := img.Width, img.Height
	p := img.Pix
	gx, gy := g.X[:w*h], g.Y[:w*h]

	for i := 1; i < h-1; i++ {
		r0 := (i - 1) * w
		r1 := i * w
		r2 := (i + 1) * w
		for j := 1; j < w-1; j++ {
			tl, tc, tr := int(p[r0+j-1]), int(p[r0+j]), int(p[r0+j+1])
			ml, mr := int(p[r1+j-1]), int(p[r1+j+1])
			bl, bc, br := int(p[r2+j-1]), int(p[r2+j]), int(p[r2+j+1])

			gx[r1+j] = int16((-tl + tr - 2*ml + 2*mr - bl + br) >> 1)
			gy[r1+j] = int16((-tl - 2*tc - tr + bl + 2*bc + br) >> 1)
		}
	}

	for j := 0; j < w; j++ {
		gx[j], gy[j] = 0, 0
		gx[(h-1)*w+j], gy[(h-1)*w+j] = 0, 0
	}
	for i := 0; i < h; i++ {
		gx[i*w], gy[i*w] = 0, 0
		gx[i*w+w-1], gy[i*w+w-1] = 0, 0
	}
}

// Build computes the gradient field of every pyramid level.
func (g *Gradients) Build(p *Pyramid) {
	for l := range g.Levels {
		ComputeGradient(&g.Levels[l], &p.Levels[l])
	}
}
