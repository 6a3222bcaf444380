package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/matrix"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-layer-service/internal/layering"
)

// pageResources resolves font and XObject names against a page's
// /Resources dictionary, caching what it has loaded.
type pageResources struct {
	obj      objects
	fonts    types.Dict
	xobjects types.Dict

	fontCache map[string]*fontInfo
	xobjCache map[string]xobjectInfo
}

func newPageResources(obj objects, resources types.Dict) *pageResources {
	return &pageResources{
		obj:       obj,
		fonts:     obj.dict(obj.entry(resources, "Font")),
		xobjects:  obj.dict(obj.entry(resources, "XObject")),
		fontCache: make(map[string]*fontInfo),
		xobjCache: make(map[string]xobjectInfo),
	}
}

func (r *pageResources) font(name string) *fontInfo {
	if f, ok := r.fontCache[name]; ok {
		return f
	}
	f := r.loadFont(r.obj.dict(r.obj.entry(r.fonts, name)))
	r.fontCache[name] = f
	return f
}

func (r *pageResources) loadFont(fd types.Dict) *fontInfo {
	f := newFontInfo()
	if fd == nil {
		return f
	}
	if v, ok := fd.Find("ToUnicode"); ok {
		if data, _, ok := r.obj.stream(v); ok {
			f.unicode = parseToUnicode(data)
		}
	}

	switch r.obj.name(r.obj.entry(fd, "Subtype")) {
	case "Type0":
		f.twoByte = true
		f.missingWidth = 1000
		kids := r.obj.array(r.obj.entry(fd, "DescendantFonts"))
		if len(kids) == 0 {
			return f
		}
		cid := r.obj.dict(kids[0])
		if dw, ok := r.obj.number(r.obj.entry(cid, "DW")); ok {
			f.missingWidth = dw
		}
		f.cidWidths = r.cidWidths(r.obj.array(r.obj.entry(cid, "W")))
		r.applyDescriptor(f, r.obj.dict(r.obj.entry(cid, "FontDescriptor")))
		return f

	case "Type3":
		fm := r.obj.numbers(r.obj.entry(fd, "FontMatrix"))
		if len(fm) == 6 && fm[0] != 0 {
			f.widthScale = fm[0]
			if bbox := r.obj.rect(r.obj.entry(fd, "FontBBox")); bbox != nil && bbox.Height() > 0 {
				f.ascent = bbox.Y2 * fm[3] * 1000
				f.descent = bbox.Y1 * fm[3] * 1000
			}
		}
	}

	if fc, ok := r.obj.number(r.obj.entry(fd, "FirstChar")); ok {
		f.firstChar = int(fc)
	}
	f.widths = r.obj.numbers(r.obj.entry(fd, "Widths"))
	r.applyDescriptor(f, r.obj.dict(r.obj.entry(fd, "FontDescriptor")))
	return f
}

func (r *pageResources) applyDescriptor(f *fontInfo, desc types.Dict) {
	if desc == nil {
		return
	}
	if v, ok := r.obj.number(r.obj.entry(desc, "Ascent")); ok && v != 0 {
		f.ascent = v
	}
	if v, ok := r.obj.number(r.obj.entry(desc, "Descent")); ok && v != 0 {
		f.descent = v
	}
	if v, ok := r.obj.number(r.obj.entry(desc, "MissingWidth")); ok && !f.twoByte {
		f.missingWidth = v
	}
}

// cidWidths reads a CIDFont /W array: "c [w1 w2 ...]" and "cfirst clast w".
func (r *pageResources) cidWidths(w types.Array) map[int]float64 {
	widths := make(map[int]float64)
	for i := 0; i < len(w); {
		first, ok := r.obj.number(w[i])
		if !ok || i+1 >= len(w) {
			break
		}
		if list := r.obj.array(w[i+1]); list != nil {
			for j, item := range list {
				if v, ok := r.obj.number(item); ok {
					widths[int(first)+j] = v
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, _ := r.obj.number(w[i+1])
		v, _ := r.obj.number(w[i+2])
		for c := int(first); c <= int(last) && c-int(first) <= maxRange; c++ {
			widths[c] = v
		}
		i += 3
	}
	return widths
}

func (r *pageResources) xobject(name string) xobjectInfo {
	if x, ok := r.xobjCache[name]; ok {
		return x
	}
	x := xobjectInfo{tag: layering.TagUnknown, form: matrix.IdentMatrix}
	d := r.obj.dict(r.obj.entry(r.xobjects, name))
	switch r.obj.name(r.obj.entry(d, "Subtype")) {
	case "Image":
		x.tag = layering.TagImage
	case "Form":
		x.tag = layering.TagForm
		x.form = r.obj.transform(r.obj.entry(d, "Matrix"))
		if bbox := r.obj.rect(r.obj.entry(d, "BBox")); bbox != nil {
			x.bbox = *bbox
		}
	}
	r.xobjCache[name] = x
	return x
}
