package pdf

import (
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/matrix"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-layer-service/internal/domain"
)

// newMatrix builds a transformation from the operands [a b c d e f] of cm or Tm.
func newMatrix(v []float64) matrix.Matrix {
	return matrix.Matrix{
		{v[0], v[1], 0},
		{v[2], v[3], 0},
		{v[4], v[5], 1},
	}
}

func translate(tx, ty float64) matrix.Matrix {
	return matrix.Matrix{{1, 0, 0}, {0, 1, 0}, {tx, ty, 1}}
}

// transformBox maps the corners of b through m and returns their bounding box.
func transformBox(m matrix.Matrix, b domain.BBox) domain.BBox {
	var acc bounds
	acc.add(m, b.X1, b.Y1)
	acc.add(m, b.X2, b.Y1)
	acc.add(m, b.X1, b.Y2)
	acc.add(m, b.X2, b.Y2)
	return acc.box()
}

// lineScale is the factor by which m stretches lengths, used for line widths.
func lineScale(m matrix.Matrix) float64 {
	return math.Sqrt(math.Abs(m[0][0]*m[1][1] - m[0][1]*m[1][0]))
}

// bounds accumulates transformed points into a bounding box.
type bounds struct {
	set                    bool
	minX, minY, maxX, maxY float64
}

func (b *bounds) add(m matrix.Matrix, x, y float64) {
	p := m.Transform(types.Point{X: x, Y: y})
	if !b.set {
		b.minX, b.maxX, b.minY, b.maxY = p.X, p.X, p.Y, p.Y
		b.set = true
		return
	}
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

func (b *bounds) box() domain.BBox {
	if !b.set {
		return domain.BBox{}
	}
	return domain.BBox{X1: b.minX, Y1: b.minY, X2: b.maxX, Y2: b.maxY}
}
