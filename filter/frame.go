package filter

// Frame is one decoded video frame as packed 8-bit RGB, 3 bytes per
// pixel in row-major order. Frames are ephemeral: they exist only while
// a pipeline run is working on them and are never persisted.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a zeroed frame of the given dimensions.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Width:  f.Width,
		Height: f.Height,
		Pix:    make([]uint8, len(f.Pix)),
	}
	copy(out.Pix, f.Pix)
	return out
}

// Mask is a single-channel weight grid with the same dimensions as its
// frame. Weights are in [0,1]: near 1 means foreground subject, near 0
// means background.
type Mask struct {
	Width   int
	Height  int
	Weights []float32
}

// NewMask allocates an all-zero mask.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:   width,
		Height:  height,
		Weights: make([]float32, width*height),
	}
}
