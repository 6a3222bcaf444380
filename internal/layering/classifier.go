// Package layering splits a page's drawing primitives into z-ordered layers.
package layering

import (
	"unicode/utf8"

	"pdf-layer-service/internal/domain"
)

// Native primitive tags, as reported by the page model provider.
const (
	TagUnknown = 0
	TagText    = 1
	TagPath    = 2
	TagImage   = 3
	TagShade   = 4
	TagForm    = 5
)

var tagKinds = map[int]domain.Kind{
	TagText:  domain.KindText,
	TagPath:  domain.KindPath,
	TagImage: domain.KindImage,
	TagShade: domain.KindShade,
	TagForm:  domain.KindForm,
}

// MaxExcerpt is the number of characters kept from a text primitive.
const MaxExcerpt = 64

// Classify maps a raw primitive to its kind and normalized bounding box.
// Tags outside the known set are KindUnknown.
func Classify(raw domain.RawPrimitive) (domain.Kind, domain.BBox) {
	kind, ok := tagKinds[raw.Tag]
	if !ok {
		kind = domain.KindUnknown
	}
	return kind, raw.BBox.Normalize()
}

// Excerpt truncates s to MaxExcerpt characters.
func Excerpt(s string) string {
	if utf8.RuneCountInString(s) <= MaxExcerpt {
		return s
	}
	n := 0
	for i := range s {
		if n == MaxExcerpt {
			return s[:i]
		}
		n++
	}
	return s
}
