package filter

// Blend composites the original frame over its styled rendition using
// the foreground mask: output = original*w + styled*(1-w) per pixel and
// channel. The mask gets one extra 15x15 Gaussian pass right before
// compositing, which widens the feather zone beyond the smoothing
// BuildMask already did. Blend never fails for a well-formed frame; an
// unknown style degrades to identity via Apply.
func Blend(f *Frame, style Style, m *Mask) *Frame {
	styled := Apply(f, style)
	weights := blurPlane(m.Weights, m.Width, m.Height, blendBlurSize)

	out := NewFrame(f.Width, f.Height)
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		w := float64(weights[i])
		if w < 0 {
			w = 0
		} else if w > 1 {
			w = 1
		}
		for c := 0; c < 3; c++ {
			orig := float64(f.Pix[i*3+c])
			sty := float64(styled.Pix[i*3+c])
			out.Pix[i*3+c] = clampU8(orig*w + sty*(1-w))
		}
	}
	return out
}

// MaskPreview renders a detection overlay for debugging: pixels the
// mask considers foreground are tinted green at 30% opacity over the
// original frame.
func MaskPreview(f *Frame, m *Mask) *Frame {
	const alpha = 0.3
	out := f.Clone()
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		if m.Weights[i] <= 0.5 {
			continue
		}
		out.Pix[i*3] = clampU8(float64(f.Pix[i*3]) * (1 - alpha))
		out.Pix[i*3+1] = clampU8(float64(f.Pix[i*3+1])*(1-alpha) + 255*alpha)
		out.Pix[i*3+2] = clampU8(float64(f.Pix[i*3+2]) * (1 - alpha))
	}
	return out
}
