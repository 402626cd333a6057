package filter

// RegionKind tags a detector box as face-like or body-like.
type RegionKind string

const (
	KindFace RegionKind = "face"
	KindBody RegionKind = "body"
)

// Region is one axis-aligned detection box from the external region
// detector, in frame pixel coordinates.
type Region struct {
	X    int        `json:"x"`
	Y    int        `json:"y"`
	W    int        `json:"width"`
	H    int        `json:"height"`
	Kind RegionKind `json:"kind"`
}

const (
	morphKernelSize = 15
	maskBlurSize    = 21
	blendBlurSize   = 15
	styleBlurSize   = 21
	fullIntensity   = 255
)

// BuildMask turns raw detector boxes into a smooth foreground mask for
// a frame of the given dimensions.
//
// Face boxes under-cover the person, so each is expanded asymmetrically
// (outward and downward) to approximate the torso before painting; body
// boxes already cover the subject and are painted as-is. The painted
// canvas is then closed and opened with a 15x15 structuring element to
// merge nearby rectangles and drop isolated detector noise, and finally
// smoothed with a 21x21 Gaussian so the composite has no visible seam.
//
// With zero detections the mask is entirely zero and the whole frame is
// treated as background.
func BuildMask(width, height int, regions []Region) *Mask {
	canvas := make([]uint8, width*height)

	for _, r := range regions {
		x, y, w, h := r.X, r.Y, r.W, r.H
		if r.Kind == KindFace {
			ex := max(0, x-w/2)
			ey := max(0, y-h/2)
			ew := min(width-ex, w*2)
			eh := min(height-ey, h*3)
			x, y, w, h = ex, ey, ew, eh
		}
		paintRect(canvas, width, height, x, y, w, h)
	}

	canvas = morphClose(canvas, width, height, morphKernelSize)
	canvas = morphOpen(canvas, width, height, morphKernelSize)

	plane := make([]float32, len(canvas))
	for i, v := range canvas {
		plane[i] = float32(v)
	}
	plane = blurPlane(plane, width, height, maskBlurSize)

	m := &Mask{Width: width, Height: height, Weights: plane}
	for i := range m.Weights {
		m.Weights[i] /= fullIntensity
	}
	return m
}

func paintRect(canvas []uint8, width, height, x, y, w, h int) {
	x0 := max(0, x)
	y0 := max(0, y)
	x1 := min(width, x+w)
	y1 := min(height, y+h)
	for yy := y0; yy < y1; yy++ {
		row := yy * width
		for xx := x0; xx < x1; xx++ {
			canvas[row+xx] = fullIntensity
		}
	}
}
