package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"pdf-layer-service/internal/domain"
)

// rasterize renders one page of an in-memory PDF at scale pixels per unit.
// MuPDF draws onto an opaque white background.
func rasterize(data []byte, pageIndex int, scale float64) (*image.RGBA, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open raster document: %w", err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("page index %d out of range (%d pages)", pageIndex, doc.NumPage())
	}
	img, err := doc.ImageDPI(pageIndex, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", pageIndex+1, err)
	}
	return img, nil
}

// matte recovers a transparent raster from two renders of the same content,
// one over white and one over black. For premultiplied colour C and alpha a,
// white = C + (1-a) and black = C, so a = 1 - (white - black).
func matte(white, black *image.RGBA) (*image.RGBA, error) {
	if white.Bounds() != black.Bounds() {
		return nil, fmt.Errorf("matte: raster sizes differ: %v vs %v", white.Bounds(), black.Bounds())
	}
	b := white.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		wi := white.PixOffset(b.Min.X, y)
		bi := black.PixOffset(b.Min.X, y)
		oi := out.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			w := white.Pix[wi+4*x : wi+4*x+3]
			k := black.Pix[bi+4*x : bi+4*x+3]
			diff := 0
			for c := 0; c < 3; c++ {
				if d := int(w[c]) - int(k[c]); d > diff {
					diff = d
				}
			}
			alpha := 255 - diff
			px := out.Pix[oi+4*x : oi+4*x+4]
			for c := 0; c < 3; c++ {
				v := int(k[c])
				if v > alpha {
					v = alpha
				}
				px[c] = uint8(v)
			}
			px[3] = uint8(alpha)
		}
	}
	return out, nil
}

// outline reads the document outline through MuPDF.
func outline(data []byte) ([]domain.TOCEntry, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	items, err := doc.ToC()
	if err != nil {
		// ToC fails on documents without an outline.
		return nil, nil
	}
	toc := make([]domain.TOCEntry, len(items))
	for i, o := range items {
		toc[i] = domain.TOCEntry{Level: o.Level - 1, Page: o.Page, Title: o.Title}
	}
	for i := range toc {
		for j := i + 1; j < len(toc) && toc[j].Level > toc[i].Level; j++ {
			if toc[j].Level == toc[i].Level+1 {
				toc[i].NKids++
			}
		}
	}
	return toc, nil
}
