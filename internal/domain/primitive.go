package domain

import (
	"fmt"
	"math"
	"strings"
)

// Kind is the closed classification of a drawable primitive.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindPath
	KindImage
	KindShade
	KindForm
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindText:    "text",
	KindPath:    "path",
	KindImage:   "image",
	KindShade:   "shade",
	KindForm:    "form",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind is the inverse of Kind.String. Unrecognised names map to KindUnknown.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k
		}
	}
	return KindUnknown
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// BBox is an axis-aligned rectangle in page units.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Normalize returns the box with x1<=x2 and y1<=y2.
func (b BBox) Normalize() BBox {
	return BBox{
		X1: math.Min(b.X1, b.X2),
		Y1: math.Min(b.Y1, b.Y2),
		X2: math.Max(b.X1, b.X2),
		Y2: math.Max(b.Y1, b.Y2),
	}
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }
func (b BBox) Area() float64   { return b.Width() * b.Height() }

// Union returns the smallest box containing both boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X1: math.Min(b.X1, o.X1),
		Y1: math.Min(b.Y1, o.Y1),
		X2: math.Max(b.X2, o.X2),
		Y2: math.Max(b.Y2, o.Y2),
	}
}

// Intersect returns the overlap of both boxes. Disjoint boxes collapse to a
// zero-area box at the nearest corner.
func (b BBox) Intersect(o BBox) BBox {
	r := BBox{
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
		X2: math.Min(b.X2, o.X2),
		Y2: math.Min(b.Y2, o.Y2),
	}
	if r.X2 < r.X1 {
		r.X2 = r.X1
	}
	if r.Y2 < r.Y1 {
		r.Y2 = r.Y1
	}
	return r
}

// Array returns the box as [x1, y1, x2, y2].
func (b BBox) Array() [4]float64 {
	return [4]float64{b.X1, b.Y1, b.X2, b.Y2}
}

func (b BBox) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", b.X1, b.Y1, b.X2, b.Y2)
}

// RawPrimitive is a drawable unit as reported by a page model provider: its
// native type tag and bounding box, plus the shown text for text runs.
type RawPrimitive struct {
	Tag  int
	BBox BBox
	Text string
}

// Primitive is one classified drawable unit of a page.
type Primitive struct {
	SequenceID  int    `json:"sequence_id"`
	Kind        Kind   `json:"kind"`
	BBox        BBox   `json:"bbox"`
	ZIndex      *int   `json:"z_index"`
	TextExcerpt string `json:"text,omitempty"`
}

// IsDegenerate reports whether the primitive was set aside during segmentation.
func (p Primitive) IsDegenerate() bool {
	return p.ZIndex == nil
}

// IDRange is an inclusive range of primitive sequence ids.
type IDRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether id falls inside the range.
func (r IDRange) Contains(id int) bool {
	return id >= r.Start && id <= r.End
}

func (r IDRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.Start, r.End)
}
