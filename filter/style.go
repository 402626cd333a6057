package filter

// Style names a whole-frame transformation applied to the background
// portion of the composite.
type Style string

const (
	StyleGrayscale Style = "grayscale"
	StyleSepia     Style = "sepia"
	StyleBlur      Style = "blur"
	StyleIdentity  Style = "identity"
)

// ParseStyle maps a client-supplied filter id to a Style. Unrecognized
// ids resolve to StyleIdentity rather than erroring, so older clients
// sending unknown filter names still get a playable result.
func ParseStyle(s string) Style {
	switch Style(s) {
	case StyleGrayscale, StyleSepia, StyleBlur:
		return Style(s)
	default:
		return StyleIdentity
	}
}

// StyleInfo describes one selectable filter for API clients.
type StyleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Styles lists the filters exposed to clients.
func Styles() []StyleInfo {
	return []StyleInfo{
		{ID: "grayscale", Name: "Grayscale", Description: "Convert background to grayscale"},
		{ID: "sepia", Name: "Sepia", Description: "Apply sepia tone to background"},
		{ID: "blur", Name: "Blur", Description: "Blur the background"},
	}
}

// sepiaMatrix maps an input RGB vector to the output channel values.
var sepiaMatrix = [3][3]float64{
	{0.393, 0.769, 0.189},
	{0.349, 0.686, 0.168},
	{0.272, 0.534, 0.131},
}

// Apply renders the whole frame with the given style. It is pure and
// deterministic: the same frame and style always produce byte-identical
// output, and the result has the input's dimensions and channel count.
func Apply(f *Frame, style Style) *Frame {
	switch style {
	case StyleGrayscale:
		return applyGrayscale(f)
	case StyleSepia:
		return applySepia(f)
	case StyleBlur:
		return blurFrame(f, styleBlurSize)
	default:
		return f.Clone()
	}
}

// applyGrayscale converts to BT.601 luma, applies a slight linear
// contrast boost (scale 1.1, offset +5) and replicates the channel.
func applyGrayscale(f *Frame) *Frame {
	out := NewFrame(f.Width, f.Height)
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		r := float64(f.Pix[i*3])
		g := float64(f.Pix[i*3+1])
		b := float64(f.Pix[i*3+2])
		luma := 0.299*r + 0.587*g + 0.114*b
		v := clampU8(luma*1.1 + 5)
		out.Pix[i*3] = v
		out.Pix[i*3+1] = v
		out.Pix[i*3+2] = v
	}
	return out
}

func applySepia(f *Frame) *Frame {
	out := NewFrame(f.Width, f.Height)
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		r := float64(f.Pix[i*3])
		g := float64(f.Pix[i*3+1])
		b := float64(f.Pix[i*3+2])
		for c := 0; c < 3; c++ {
			m := sepiaMatrix[c]
			out.Pix[i*3+c] = clampU8(m[0]*r + m[1]*g + m[2]*b)
		}
	}
	return out
}
