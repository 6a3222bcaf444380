package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-layer-service/internal/domain"
)

// letter is used when a page tree carries no MediaBox at all.
var letter = domain.BBox{X2: 612, Y2: 792}

func rectBox(r *types.Rectangle) *domain.BBox {
	if r == nil {
		return nil
	}
	b := domain.BBox{X1: r.LL.X, Y1: r.LL.Y, X2: r.UR.X, Y2: r.UR.Y}.Normalize()
	return &b
}

// normalizeRotation maps /Rotate onto 0, 90, 180 or 270.
func normalizeRotation(r int) int {
	r = ((r % 360) + 360) % 360
	return (r + 45) / 90 % 4 * 90
}

// pageGeometry derives size, rotation and the five page boxes. Media and crop
// boxes are inherited through the page tree; bleed, trim and art boxes
// default to the crop box.
func pageGeometry(obj objects, page types.Dict, inh *model.InheritedPageAttrs) domain.PageGeometry {
	var g domain.PageGeometry
	if inh != nil {
		g.MediaBox = rectBox(inh.MediaBox)
		g.CropBox = rectBox(inh.CropBox)
		g.Rotation = normalizeRotation(inh.Rotate)
	}
	if g.MediaBox == nil {
		g.MediaBox = obj.rect(obj.entry(page, "MediaBox"))
	}
	if g.MediaBox == nil {
		m := letter
		g.MediaBox = &m
	}
	if g.CropBox == nil {
		g.CropBox = obj.rect(obj.entry(page, "CropBox"))
	}
	if g.CropBox == nil {
		c := *g.MediaBox
		g.CropBox = &c
	}

	fallback := func(key string) *domain.BBox {
		if b := obj.rect(obj.entry(page, key)); b != nil {
			return b
		}
		c := *g.CropBox
		return &c
	}
	g.BleedBox = fallback("BleedBox")
	g.TrimBox = fallback("TrimBox")
	g.ArtBox = fallback("ArtBox")

	g.BBox = g.MediaBox.Intersect(*g.CropBox)
	g.Width, g.Height = g.CropBox.Width(), g.CropBox.Height()
	if g.Rotation == 90 || g.Rotation == 270 {
		g.Width, g.Height = g.Height, g.Width
	}
	return g
}
