package layering

import "pdf-layer-service/internal/domain"

// Epsilon is the smallest width or height, in page units, of a visible primitive.
const Epsilon = 1e-4

// IsDegenerate reports whether b occupies effectively no area.
func IsDegenerate(b domain.BBox) bool {
	return (b.X2-b.X1) < Epsilon || (b.Y2-b.Y1) < Epsilon
}
