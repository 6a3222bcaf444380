package layering

import (
	"sort"

	"pdf-layer-service/internal/domain"
)

// Segmentation is the partition of a page's primitives into layers and the
// degenerate primitives set aside.
type Segmentation struct {
	Layers     map[int]*domain.Layer
	Degenerate []domain.Primitive
}

// segmentState is the accumulator threaded through the fold in Segment.
type segmentState struct {
	current    *domain.Layer
	layers     map[int]*domain.Layer
	degenerate []domain.Primitive
}

// Segment walks raws in content order and groups the non-degenerate ones into
// maximal runs of one kind. Runs get z-indexes 1, 2, ... in order. Degenerate
// primitives neither start nor end a run.
func Segment(raws []domain.RawPrimitive) Segmentation {
	state := segmentState{layers: make(map[int]*domain.Layer)}
	for i, raw := range raws {
		state = step(state, i, raw)
	}

	seg := Segmentation{Layers: state.layers, Degenerate: state.degenerate}
	if seg.Degenerate == nil {
		seg.Degenerate = []domain.Primitive{}
	}
	return seg
}

func step(s segmentState, seq int, raw domain.RawPrimitive) segmentState {
	kind, bbox := Classify(raw)
	p := domain.Primitive{SequenceID: seq, Kind: kind, BBox: bbox}
	if kind == domain.KindText {
		p.TextExcerpt = Excerpt(raw.Text)
	}

	if IsDegenerate(bbox) {
		s.degenerate = append(s.degenerate, p)
		return s
	}

	// A kind mismatch on the open layer ends the run.
	if s.current != nil {
		z := s.current.ZIndex
		p.ZIndex = &z
		if s.current.AddObject(p) == nil {
			return s
		}
	}
	z := len(s.layers) + 1
	p.ZIndex = &z
	s.current = domain.NewLayer(z, kind)
	s.layers[z] = s.current
	if err := s.current.AddObject(p); err != nil {
		panic(err) // unreachable: the layer takes p's kind
	}
	return s
}

// SortedZ returns the z-indexes of seg in ascending order.
func (seg Segmentation) SortedZ() []int {
	zs := make([]int, 0, len(seg.Layers))
	for z := range seg.Layers {
		zs = append(zs, z)
	}
	sort.Ints(zs)
	return zs
}
