package pdf

import (
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/matrix"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/layering"
)

// xobjectInfo describes a named XObject of the page resources.
type xobjectInfo struct {
	tag  int
	bbox domain.BBox
	form matrix.Matrix
}

// resourceLookup resolves names used by a content stream.
type resourceLookup interface {
	font(name string) *fontInfo
	xobject(name string) xobjectInfo
}

// traced is one primitive with the operations that produce it.
type traced struct {
	raw   domain.RawPrimitive
	first int
	last  int
	// clip is set for paths whose construction also establishes a clip.
	clip bool
	// textMode is the render mode in effect for text primitives.
	textMode int
}

type graphicsState struct {
	ctm       matrix.Matrix
	lineWidth float64
	clip      domain.BBox

	font       *fontInfo
	fontSize   float64
	charSpace  float64
	wordSpace  float64
	hScale     float64
	leading    float64
	rise       float64
	renderMode int
}

// tracer replays a content stream and reports its primitives in order.
type tracer struct {
	res   resourceLookup
	gs    graphicsState
	stack []graphicsState

	tm, tlm matrix.Matrix

	pathStart   int
	path        bounds
	pendingClip bool

	out []traced
}

func newTracer(res resourceLookup, pageBox domain.BBox) *tracer {
	return &tracer{
		res: res,
		gs: graphicsState{
			ctm:       matrix.IdentMatrix,
			lineWidth: 1,
			clip:      pageBox,
			font:      newFontInfo(),
			hScale:    100,
		},
		tm:        matrix.IdentMatrix,
		tlm:       matrix.IdentMatrix,
		pathStart: -1,
	}
}

// trace returns every primitive of ops in content order.
func trace(ops []Op, res resourceLookup, pageBox domain.BBox) []traced {
	t := newTracer(res, pageBox)
	for i, op := range ops {
		t.step(i, op)
	}
	return t.out
}

func (t *tracer) emit(tag int, box domain.BBox, first, last int) *traced {
	t.out = append(t.out, traced{
		raw:   domain.RawPrimitive{Tag: tag, BBox: box},
		first: first,
		last:  last,
	})
	return &t.out[len(t.out)-1]
}

func (t *tracer) step(i int, op Op) {
	switch op.Operator {
	case "q":
		t.stack = append(t.stack, t.gs)
	case "Q":
		if n := len(t.stack); n > 0 {
			t.gs = t.stack[n-1]
			t.stack = t.stack[:n-1]
		}
	case "cm":
		if v, ok := op.nums(6); ok {
			t.gs.ctm = newMatrix(v).Multiply(t.gs.ctm)
		}
	case "w":
		if v, ok := op.nums(1); ok {
			t.gs.lineWidth = v[0]
		}

	case "m", "l", "c", "v", "y", "re", "h":
		t.pathOp(i, op)
	case "W", "W*":
		t.pendingClip = true
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		t.paint(i, op.Operator)
	case "n":
		t.endPath()

	case "BT":
		t.tm, t.tlm = matrix.IdentMatrix, matrix.IdentMatrix
	case "Tf":
		if len(op.Operands) >= 2 {
			t.gs.font = t.res.font(op.name(0))
			t.gs.fontSize = op.num(1)
		}
	case "Tc":
		t.gs.charSpace = op.num(0)
	case "Tw":
		t.gs.wordSpace = op.num(0)
	case "Tz":
		t.gs.hScale = op.num(0)
	case "TL":
		t.gs.leading = op.num(0)
	case "Ts":
		t.gs.rise = op.num(0)
	case "Tr":
		t.gs.renderMode = int(op.num(0))
	case "Td":
		if v, ok := op.nums(2); ok {
			t.moveText(v[0], v[1])
		}
	case "TD":
		if v, ok := op.nums(2); ok {
			t.gs.leading = -v[1]
			t.moveText(v[0], v[1])
		}
	case "Tm":
		if v, ok := op.nums(6); ok {
			t.tm = newMatrix(v)
			t.tlm = t.tm
		}
	case "T*":
		t.moveText(0, -t.gs.leading)
	case "Tj", "TJ", "'", "\"":
		t.showText(i, op)

	case "Do":
		t.doXObject(i, op.name(0))
	case "BI":
		t.emit(layering.TagImage, transformBox(t.gs.ctm, domain.BBox{X2: 1, Y2: 1}), i, i)
	case "sh":
		t.emit(layering.TagShade, t.gs.clip, i, i)
	}
}

func (t *tracer) pathOp(i int, op Op) {
	if t.pathStart < 0 {
		t.pathStart = i
	}
	add := func(x, y float64) {
		t.path.add(t.gs.ctm, x, y)
	}
	switch op.Operator {
	case "m", "l":
		if v, ok := op.nums(2); ok {
			add(v[0], v[1])
		}
	case "c":
		if v, ok := op.nums(6); ok {
			add(v[0], v[1])
			add(v[2], v[3])
			add(v[4], v[5])
		}
	case "v", "y":
		if v, ok := op.nums(4); ok {
			add(v[0], v[1])
			add(v[2], v[3])
		}
	case "re":
		if v, ok := op.nums(4); ok {
			add(v[0], v[1])
			add(v[0]+v[2], v[1])
			add(v[0], v[1]+v[3])
			add(v[0]+v[2], v[1]+v[3])
		}
	}
}

func (t *tracer) paint(i int, operator string) {
	first := t.pathStart
	if first < 0 {
		first = i
	}
	box := t.path.box()
	if strings.ContainsAny(operator, "SsBb") {
		half := t.gs.lineWidth * lineScale(t.gs.ctm) / 2
		if t.path.set {
			box = domain.BBox{X1: box.X1 - half, Y1: box.Y1 - half, X2: box.X2 + half, Y2: box.Y2 + half}
		}
	}
	p := t.emit(layering.TagPath, box, first, i)
	p.clip = t.pendingClip
	t.endPath()
}

// endPath closes the current path, applying a pending clip.
func (t *tracer) endPath() {
	if t.pendingClip && t.path.set {
		t.gs.clip = t.gs.clip.Intersect(t.path.box())
	}
	t.pendingClip = false
	t.path = bounds{}
	t.pathStart = -1
}

func (t *tracer) moveText(tx, ty float64) {
	t.tlm = translate(tx, ty).Multiply(t.tlm)
	t.tm = t.tlm
}

func (t *tracer) showText(i int, op Op) {
	var parts []Operand
	switch op.Operator {
	case "Tj":
		parts = op.Operands
	case "'":
		t.moveText(0, -t.gs.leading)
		parts = op.Operands
	case "\"":
		if len(op.Operands) >= 3 {
			t.gs.wordSpace = op.num(0)
			t.gs.charSpace = op.num(1)
			parts = op.Operands[2:]
		}
		t.moveText(0, -t.gs.leading)
	case "TJ":
		if len(op.Operands) > 0 && op.Operands[0].Kind == OperandArray {
			parts = op.Operands[0].Array
		}
	}

	f := t.gs.font
	if f == nil {
		f = newFontInfo()
	}
	fs := t.gs.fontSize
	th := t.gs.hScale / 100

	var (
		x     float64
		minX  float64
		maxX  float64
		shown []byte
	)
	for _, part := range parts {
		switch part.Kind {
		case OperandNumber:
			x -= part.Num / 1000 * fs * th
		case OperandString:
			shown = append(shown, part.Bytes...)
			for _, code := range f.codes(part.Bytes) {
				w := f.advance(code)*fs + t.gs.charSpace
				if !f.twoByte && code == ' ' {
					w += t.gs.wordSpace
				}
				x += w * th
			}
		default:
			continue
		}
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
	}

	box := domain.BBox{
		X1: minX,
		Y1: f.descent/1000*fs + t.gs.rise,
		X2: maxX,
		Y2: f.ascent/1000*fs + t.gs.rise,
	}
	if len(shown) == 0 {
		box.X2 = box.X1
	}
	toPage := t.tm.Multiply(t.gs.ctm)
	p := t.emit(layering.TagText, transformBox(toPage, box), i, i)
	p.raw.Text = f.decode(shown)
	p.textMode = t.gs.renderMode

	t.tm = translate(x, 0).Multiply(t.tm)
}

func (t *tracer) doXObject(i int, name string) {
	x := t.res.xobject(name)
	switch x.tag {
	case layering.TagForm:
		t.emit(x.tag, transformBox(x.form.Multiply(t.gs.ctm), x.bbox), i, i)
	default:
		t.emit(x.tag, transformBox(t.gs.ctm, domain.BBox{X2: 1, Y2: 1}), i, i)
	}
}
