package domain

import (
	"fmt"
	"sort"
)

// Layer is a maximal run of same-kind primitives sharing one z-index.
type Layer struct {
	ZIndex  int         `json:"z_index"`
	Kind    Kind        `json:"kind"`
	Objects []Primitive `json:"objects"`
}

// NewLayer creates an empty layer for primitives of the given kind.
func NewLayer(z int, kind Kind) *Layer {
	return &Layer{ZIndex: z, Kind: kind}
}

// AddObject appends p to the layer. Primitives of a different kind are rejected.
func (l *Layer) AddObject(p Primitive) error {
	if p.Kind != l.Kind {
		return fmt.Errorf("%w: layer %d is %s, primitive %d is %s",
			ErrKindMismatch, l.ZIndex, l.Kind, p.SequenceID, p.Kind)
	}
	l.Objects = append(l.Objects, p)
	return nil
}

func (l *Layer) ObjectCount() int {
	return len(l.Objects)
}

// IDRange returns the smallest and largest member sequence ids. Degenerate
// primitives of other kinds may sit inside the range.
func (l *Layer) IDRange() IDRange {
	if len(l.Objects) == 0 {
		return IDRange{}
	}
	r := IDRange{Start: l.Objects[0].SequenceID, End: l.Objects[0].SequenceID}
	for _, o := range l.Objects[1:] {
		if o.SequenceID < r.Start {
			r.Start = o.SequenceID
		}
		if o.SequenceID > r.End {
			r.End = o.SequenceID
		}
	}
	return r
}

// Page is one processed page with its layers and the primitives set aside as degenerate.
type Page struct {
	Number   int     `json:"number"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`

	MediaBox *BBox `json:"mediabox,omitempty"`
	CropBox  *BBox `json:"cropbox,omitempty"`
	BleedBox *BBox `json:"bleedbox,omitempty"`
	TrimBox  *BBox `json:"trimbox,omitempty"`
	ArtBox   *BBox `json:"artbox,omitempty"`
	BBox     BBox  `json:"bbox"`

	Layers          map[int]*Layer `json:"-"`
	ZeroAreaObjects []Primitive    `json:"zero_area_objects"`
}

// PageGeometry is the size and box information a provider reports for a page.
type PageGeometry struct {
	Width    float64
	Height   float64
	Rotation int
	MediaBox *BBox
	CropBox  *BBox
	BleedBox *BBox
	TrimBox  *BBox
	ArtBox   *BBox
	BBox     BBox
}

// NewPage creates an empty page from its geometry.
func NewPage(number int, g PageGeometry) *Page {
	return &Page{
		Number:   number,
		Width:    g.Width,
		Height:   g.Height,
		Rotation: g.Rotation,
		MediaBox: g.MediaBox,
		CropBox:  g.CropBox,
		BleedBox: g.BleedBox,
		TrimBox:  g.TrimBox,
		ArtBox:   g.ArtBox,
		BBox:     g.BBox,
		Layers:   make(map[int]*Layer),
	}
}

// AddLayer registers l under its z-index. A z-index may only be used once per page.
func (p *Page) AddLayer(l *Layer) error {
	if p.Layers == nil {
		p.Layers = make(map[int]*Layer)
	}
	if _, exists := p.Layers[l.ZIndex]; exists {
		return fmt.Errorf("%w: page %d z %d", ErrDuplicateLayer, p.Number, l.ZIndex)
	}
	p.Layers[l.ZIndex] = l
	return nil
}

// SortedLayers returns the layers bottom to top.
func (p *Page) SortedLayers() []*Layer {
	layers := make([]*Layer, 0, len(p.Layers))
	for _, l := range p.Layers {
		layers = append(layers, l)
	}
	sort.Slice(layers, func(i, j int) bool { return layers[i].ZIndex < layers[j].ZIndex })
	return layers
}

// LayerSummary is the reporting view of a layer.
type LayerSummary struct {
	ZIndex      int     `json:"z_index"`
	Kind        Kind    `json:"kind"`
	ObjectCount int     `json:"object_count"`
	IDRange     IDRange `json:"id_range"`
}

// PageSummary is the per-page metadata returned to the record store.
type PageSummary struct {
	Number              int            `json:"number"`
	Width               float64        `json:"width"`
	Height              float64        `json:"height"`
	Layers              []LayerSummary `json:"layers"`
	ZeroAreaObjectCount int            `json:"zero_area_object_count"`
}

func (p *Page) Summary() PageSummary {
	s := PageSummary{
		Number:              p.Number,
		Width:               p.Width,
		Height:              p.Height,
		Layers:              make([]LayerSummary, 0, len(p.Layers)),
		ZeroAreaObjectCount: len(p.ZeroAreaObjects),
	}
	for _, l := range p.SortedLayers() {
		s.Layers = append(s.Layers, LayerSummary{
			ZIndex:      l.ZIndex,
			Kind:        l.Kind,
			ObjectCount: l.ObjectCount(),
			IDRange:     l.IDRange(),
		})
	}
	return s
}

// PageBundle is the persisted view of a page: geometry, every layer with its
// primitives, and the storage keys of its rasters. URLs are filled in when the
// bundle is served.
type PageBundle struct {
	DocumentID      string        `json:"document_id"`
	Number          int           `json:"page_number"`
	Width           float64       `json:"width"`
	Height          float64       `json:"height"`
	Rotation        int           `json:"rotation"`
	MediaBox        *BBox         `json:"mediabox,omitempty"`
	CropBox         *BBox         `json:"cropbox,omitempty"`
	BleedBox        *BBox         `json:"bleedbox,omitempty"`
	TrimBox         *BBox         `json:"trimbox,omitempty"`
	ArtBox          *BBox         `json:"artbox,omitempty"`
	BBox            BBox          `json:"bbox"`
	PageKey         string        `json:"page_key"`
	PageURL         string        `json:"page_url,omitempty"`
	Layers          []LayerBundle `json:"layers"`
	ZeroAreaObjects []Primitive   `json:"zero_area_objects"`
}

// LayerBundle is a layer with the storage key of its raster.
type LayerBundle struct {
	ZIndex      int         `json:"z_index"`
	Kind        Kind        `json:"kind"`
	ObjectCount int         `json:"object_count"`
	IDRange     IDRange     `json:"id_range"`
	Key         string      `json:"key"`
	URL         string      `json:"url,omitempty"`
	Objects     []Primitive `json:"objects"`
}

// Bundle builds the persisted view of the page. keyFor maps a page-relative
// asset name (page.png, l001.png) to its storage key.
func (p *Page) Bundle(documentID string, keyFor func(name string) string) PageBundle {
	b := PageBundle{
		DocumentID:      documentID,
		Number:          p.Number,
		Width:           p.Width,
		Height:          p.Height,
		Rotation:        p.Rotation,
		MediaBox:        p.MediaBox,
		CropBox:         p.CropBox,
		BleedBox:        p.BleedBox,
		TrimBox:         p.TrimBox,
		ArtBox:          p.ArtBox,
		BBox:            p.BBox,
		PageKey:         keyFor(PageAssetName),
		Layers:          make([]LayerBundle, 0, len(p.Layers)),
		ZeroAreaObjects: p.ZeroAreaObjects,
	}
	if b.ZeroAreaObjects == nil {
		b.ZeroAreaObjects = []Primitive{}
	}
	for _, l := range p.SortedLayers() {
		b.Layers = append(b.Layers, LayerBundle{
			ZIndex:      l.ZIndex,
			Kind:        l.Kind,
			ObjectCount: l.ObjectCount(),
			IDRange:     l.IDRange(),
			Key:         keyFor(LayerAssetName(l.ZIndex)),
			Objects:     l.Objects,
		})
	}
	return b
}

// PageAssetName is the file name of a page's full raster.
const PageAssetName = "page.png"

// PageDirName is the directory holding the rasters of page n.
func PageDirName(n int) string {
	return fmt.Sprintf("p%03d", n)
}

// LayerAssetName is the file name of the raster of layer z.
func LayerAssetName(z int) string {
	return fmt.Sprintf("l%03d.png", z)
}
