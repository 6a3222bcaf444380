package pdf

import (
	"math"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/matrix"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/layering"
)

type fakeResources struct {
	fonts    map[string]*fontInfo
	xobjects map[string]xobjectInfo
}

func (r fakeResources) font(name string) *fontInfo {
	if f, ok := r.fonts[name]; ok {
		return f
	}
	return newFontInfo()
}

func (r fakeResources) xobject(name string) xobjectInfo {
	if x, ok := r.xobjects[name]; ok {
		return x
	}
	return xobjectInfo{tag: layering.TagUnknown, form: matrix.IdentMatrix}
}

var testPage = domain.BBox{X2: 612, Y2: 792}

func traceString(t *testing.T, src string, res resourceLookup) []traced {
	t.Helper()
	if res == nil {
		res = fakeResources{}
	}
	return trace(Lex([]byte(src)), res, testPage)
}

func assertBox(t *testing.T, got, want domain.BBox) {
	t.Helper()
	const tol = 1e-6
	if math.Abs(got.X1-want.X1) > tol || math.Abs(got.Y1-want.Y1) > tol ||
		math.Abs(got.X2-want.X2) > tol || math.Abs(got.Y2-want.Y2) > tol {
		t.Fatalf("expected box %v, got %v", want, got)
	}
}

func TestTrace_Text(t *testing.T) {
	prims := traceString(t, "BT /F1 10 Tf 100 700 Td (Hi) Tj ET", nil)
	if len(prims) != 1 {
		t.Fatalf("expected one primitive, got %d", len(prims))
	}
	p := prims[0]
	if p.raw.Tag != layering.TagText {
		t.Fatalf("expected text tag, got %d", p.raw.Tag)
	}
	if p.raw.Text != "Hi" {
		t.Fatalf("expected text Hi, got %q", p.raw.Text)
	}
	assertBox(t, p.raw.BBox, domain.BBox{X1: 100, Y1: 698, X2: 110, Y2: 708})
}

func TestTrace_TextAdvancesBetweenShows(t *testing.T) {
	prims := traceString(t, "BT /F1 10 Tf 0 0 Td (ab) Tj (c) Tj [(d) -1000 (e)] TJ ET", nil)
	if len(prims) != 3 {
		t.Fatalf("expected three primitives, got %d", len(prims))
	}
	assertBox(t, prims[1].raw.BBox, domain.BBox{X1: 10, Y1: -2, X2: 15, Y2: 8})
	// d (5) then a 10 unit shift then e (5).
	assertBox(t, prims[2].raw.BBox, domain.BBox{X1: 15, Y1: -2, X2: 35, Y2: 8})
}

func TestTrace_EmptyTextIsDegenerate(t *testing.T) {
	prims := traceString(t, "BT /F1 10 Tf () Tj ET", nil)
	if len(prims) != 1 {
		t.Fatalf("expected one primitive, got %d", len(prims))
	}
	if !layering.IsDegenerate(prims[0].raw.BBox) {
		t.Fatalf("expected a zero-width box, got %v", prims[0].raw.BBox)
	}
}

func TestTrace_TextUsesFontWidths(t *testing.T) {
	f := newFontInfo()
	f.firstChar = 'A'
	f.widths = []float64{1000}
	res := fakeResources{fonts: map[string]*fontInfo{"F2": f}}

	prims := traceString(t, "BT /F2 20 Tf (A) Tj ET", res)
	assertBox(t, prims[0].raw.BBox, domain.BBox{X1: 0, Y1: -4, X2: 20, Y2: 16})
}

func TestTrace_Paths(t *testing.T) {
	prims := traceString(t, "0 0 10 10 re f 2 w 0 0 m 10 0 l S", nil)
	if len(prims) != 2 {
		t.Fatalf("expected two paths, got %d", len(prims))
	}
	fill, stroke := prims[0], prims[1]
	if fill.raw.Tag != layering.TagPath || stroke.raw.Tag != layering.TagPath {
		t.Fatalf("expected path tags, got %d and %d", fill.raw.Tag, stroke.raw.Tag)
	}
	assertBox(t, fill.raw.BBox, domain.BBox{X2: 10, Y2: 10})
	if fill.first != 0 || fill.last != 1 {
		t.Fatalf("expected fill ops 0..1, got %d..%d", fill.first, fill.last)
	}
	assertBox(t, stroke.raw.BBox, domain.BBox{X1: -1, Y1: -1, X2: 11, Y2: 1})
}

func TestTrace_ClipPathAndShading(t *testing.T) {
	prims := traceString(t, "q 10 10 50 50 re W n /Sh0 sh Q /Sh0 sh", nil)
	if len(prims) != 2 {
		t.Fatalf("expected two shadings, got %d", len(prims))
	}
	for _, p := range prims {
		if p.raw.Tag != layering.TagShade {
			t.Fatalf("expected shade tag, got %d", p.raw.Tag)
		}
	}
	assertBox(t, prims[0].raw.BBox, domain.BBox{X1: 10, Y1: 10, X2: 60, Y2: 60})
	assertBox(t, prims[1].raw.BBox, testPage)
}

func TestTrace_FilledClip(t *testing.T) {
	prims := traceString(t, "0 0 50 50 re W f", nil)
	if len(prims) != 1 || !prims[0].clip {
		t.Fatalf("expected one clipping path, got %+v", prims)
	}
}

func TestTrace_XObjects(t *testing.T) {
	res := fakeResources{xobjects: map[string]xobjectInfo{
		"Im1": {tag: layering.TagImage, form: matrix.IdentMatrix},
		"Fm1": {tag: layering.TagForm, form: matrix.IdentMatrix, bbox: domain.BBox{X2: 10, Y2: 10}},
	}}
	src := "q 20 0 0 30 5 5 cm /Im1 Do Q q 1 0 0 1 100 100 cm /Fm1 Do Q /Missing Do BI /W 1 /H 1 ID x EI"
	prims := traceString(t, src, res)
	if len(prims) != 4 {
		t.Fatalf("expected four primitives, got %d", len(prims))
	}

	wantTags := []int{layering.TagImage, layering.TagForm, layering.TagUnknown, layering.TagImage}
	for i, p := range prims {
		if p.raw.Tag != wantTags[i] {
			t.Fatalf("primitive %d: expected tag %d, got %d", i, wantTags[i], p.raw.Tag)
		}
	}
	assertBox(t, prims[0].raw.BBox, domain.BBox{X1: 5, Y1: 5, X2: 25, Y2: 35})
	assertBox(t, prims[1].raw.BBox, domain.BBox{X1: 100, Y1: 100, X2: 110, Y2: 110})
	assertBox(t, prims[3].raw.BBox, domain.BBox{X2: 1, Y2: 1})
}

func TestTrace_RenderModeRecorded(t *testing.T) {
	prims := traceString(t, "BT 7 Tr /F1 10 Tf (x) Tj ET", nil)
	if prims[0].textMode != 7 {
		t.Fatalf("expected render mode 7, got %d", prims[0].textMode)
	}
}
