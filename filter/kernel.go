package filter

import "math"

// gaussianKernel builds a normalized 1-D Gaussian of the given odd
// size, using the same default sigma OpenCV derives from the kernel
// size: 0.3*((ksize-1)*0.5 - 1) + 0.8.
func gaussianKernel(ksize int) []float32 {
	sigma := 0.3*((float64(ksize)-1)*0.5-1) + 0.8
	k := make([]float32, ksize)
	mid := ksize / 2
	var sum float64
	for i := 0; i < ksize; i++ {
		d := float64(i - mid)
		v := math.Exp(-(d * d) / (2 * sigma * sigma))
		k[i] = float32(v)
		sum += v
	}
	for i := range k {
		k[i] = float32(float64(k[i]) / sum)
	}
	return k
}

// clampIndex replicates edge pixels for out-of-bounds taps.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// blurPlane applies a separable Gaussian of the given kernel size to a
// single float32 plane.
func blurPlane(src []float32, width, height, ksize int) []float32 {
	kernel := gaussianKernel(ksize)
	mid := ksize / 2

	tmp := make([]float32, len(src))
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			var acc float32
			for i, kv := range kernel {
				acc += kv * src[row+clampIndex(x+i-mid, width)]
			}
			tmp[row+x] = acc
		}
	}

	out := make([]float32, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float32
			for i, kv := range kernel {
				acc += kv * tmp[clampIndex(y+i-mid, height)*width+x]
			}
			out[y*width+x] = acc
		}
	}
	return out
}

// blurFrame applies the same separable Gaussian independently to each
// RGB channel of a frame.
func blurFrame(f *Frame, ksize int) *Frame {
	n := f.Width * f.Height
	out := NewFrame(f.Width, f.Height)
	plane := make([]float32, n)
	for c := 0; c < 3; c++ {
		for i := 0; i < n; i++ {
			plane[i] = float32(f.Pix[i*3+c])
		}
		blurred := blurPlane(plane, f.Width, f.Height, ksize)
		for i := 0; i < n; i++ {
			out.Pix[i*3+c] = clampU8(float64(blurred[i]))
		}
	}
	return out
}

// dilate and erode apply a flat rectangular structuring element of the
// given size via separable sliding max/min passes.

func dilate(src []uint8, width, height, ksize int) []uint8 {
	return slideRect(src, width, height, ksize, func(a, b uint8) uint8 {
		if a > b {
			return a
		}
		return b
	})
}

func erode(src []uint8, width, height, ksize int) []uint8 {
	return slideRect(src, width, height, ksize, func(a, b uint8) uint8 {
		if a < b {
			return a
		}
		return b
	})
}

func slideRect(src []uint8, width, height, ksize int, pick func(a, b uint8) uint8) []uint8 {
	mid := ksize / 2

	tmp := make([]uint8, len(src))
	for y := 0; y < height; y++ {
		row := y * width
		for x := 0; x < width; x++ {
			v := src[row+clampIndex(x-mid, width)]
			for i := 1; i < ksize; i++ {
				v = pick(v, src[row+clampIndex(x-mid+i, width)])
			}
			tmp[row+x] = v
		}
	}

	out := make([]uint8, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := tmp[clampIndex(y-mid, height)*width+x]
			for i := 1; i < ksize; i++ {
				v = pick(v, tmp[clampIndex(y-mid+i, height)*width+x])
			}
			out[y*width+x] = v
		}
	}
	return out
}

// morphClose fills small gaps between painted regions; morphOpen
// removes speckle smaller than the structuring element.

func morphClose(src []uint8, width, height, ksize int) []uint8 {
	return erode(dilate(src, width, height, ksize), width, height, ksize)
}

func morphOpen(src []uint8, width, height, ksize int) []uint8 {
	return dilate(erode(src, width, height, ksize), width, height, ksize)
}

func clampU8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
