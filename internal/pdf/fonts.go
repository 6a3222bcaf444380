package pdf

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const (
	defaultGlyphWidth = 500.0
	defaultAscent     = 800.0
	defaultDescent    = -200.0
)

// fontInfo holds what the tracer needs from a font: code length, glyph
// advances and vertical extent (all in glyph space), and text decoding.
type fontInfo struct {
	twoByte      bool
	firstChar    int
	widths       []float64
	cidWidths    map[int]float64
	missingWidth float64
	// widthScale converts glyph space to text space: 1/1000 except for Type3.
	widthScale float64
	ascent     float64
	descent    float64
	unicode    *toUnicode
}

func newFontInfo() *fontInfo {
	return &fontInfo{
		missingWidth: defaultGlyphWidth,
		widthScale:   0.001,
		ascent:       defaultAscent,
		descent:      defaultDescent,
	}
}

// codes splits a shown string into character codes.
func (f *fontInfo) codes(b []byte) []int {
	if f.twoByte {
		out := make([]int, 0, (len(b)+1)/2)
		for i := 0; i+1 < len(b); i += 2 {
			out = append(out, int(b[i])<<8|int(b[i+1]))
		}
		return out
	}
	out := make([]int, len(b))
	for i, c := range b {
		out[i] = int(c)
	}
	return out
}

// advance returns the horizontal advance of code in text space for a font
// size of one.
func (f *fontInfo) advance(code int) float64 {
	if f.twoByte {
		if w, ok := f.cidWidths[code]; ok {
			return w * f.widthScale
		}
		return f.missingWidth * f.widthScale
	}
	if i := code - f.firstChar; i >= 0 && i < len(f.widths) {
		return f.widths[i] * f.widthScale
	}
	return f.missingWidth * f.widthScale
}

// decode converts a shown string to text. Without a ToUnicode map, simple
// fonts are read as WinAnsi and composite fonts yield nothing.
func (f *fontInfo) decode(b []byte) string {
	if f.unicode != nil {
		var sb strings.Builder
		n := f.unicode.codeBytes
		if f.twoByte {
			n = 2
		}
		for i := 0; i+n <= len(b); i += n {
			if s, ok := f.unicode.lookup(codeValue(b[i : i+n])); ok {
				sb.WriteString(s)
			}
		}
		return sb.String()
	}
	if f.twoByte {
		return ""
	}
	return winAnsi(b)
}

func winAnsi(b []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
