package pdf

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/matrix"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/encoding/unicode"

	"pdf-layer-service/internal/domain"
)

// objects resolves pdfcpu objects into plain values. Broken references read
// as missing values rather than errors.
type objects struct {
	ctx *model.Context
}

func (o objects) deref(obj types.Object) types.Object {
	if obj == nil {
		return nil
	}
	if _, ok := obj.(types.IndirectRef); !ok {
		return obj
	}
	v, err := o.ctx.Dereference(obj)
	if err != nil {
		return nil
	}
	return v
}

func (o objects) dict(obj types.Object) types.Dict {
	switch v := o.deref(obj).(type) {
	case types.Dict:
		return v
	case types.StreamDict:
		return v.Dict
	}
	return nil
}

func (o objects) entry(d types.Dict, key string) types.Object {
	if d == nil {
		return nil
	}
	v, ok := d.Find(key)
	if !ok {
		return nil
	}
	return o.deref(v)
}

func (o objects) array(obj types.Object) types.Array {
	if a, ok := o.deref(obj).(types.Array); ok {
		return a
	}
	return nil
}

func (o objects) number(obj types.Object) (float64, bool) {
	switch v := o.deref(obj).(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func (o objects) name(obj types.Object) string {
	if n, ok := o.deref(obj).(types.Name); ok {
		return string(n)
	}
	return ""
}

func (o objects) boolean(obj types.Object) bool {
	b, ok := o.deref(obj).(types.Boolean)
	return ok && bool(b)
}

// numbers reads an array of numbers; non-numeric items read as zero.
func (o objects) numbers(obj types.Object) []float64 {
	a := o.array(obj)
	if a == nil {
		return nil
	}
	out := make([]float64, len(a))
	for i, item := range a {
		out[i], _ = o.number(item)
	}
	return out
}

func (o objects) rect(obj types.Object) *domain.BBox {
	v := o.numbers(obj)
	if len(v) != 4 {
		return nil
	}
	b := domain.BBox{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]}.Normalize()
	return &b
}

// transform reads a six-number matrix array; anything else reads as identity.
func (o objects) transform(obj types.Object) matrix.Matrix {
	v := o.numbers(obj)
	if len(v) != 6 {
		return matrix.IdentMatrix
	}
	return newMatrix(v)
}

// stream returns the decoded content and dictionary of a stream object.
func (o objects) stream(obj types.Object) ([]byte, types.Dict, bool) {
	if obj == nil {
		return nil, nil, false
	}
	sd, _, err := o.ctx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return nil, nil, false
	}
	if sd.Content == nil {
		if err := sd.Decode(); err != nil {
			return nil, nil, false
		}
	}
	return sd.Content, sd.Dict, true
}

// text decodes a PDF text string: UTF-16BE with a byte order mark, otherwise
// PDFDocEncoding (read as WinAnsi, which agrees on the printable range).
func (o objects) text(obj types.Object) string {
	var raw []byte
	switch v := o.deref(obj).(type) {
	case types.StringLiteral:
		raw, _ = unescapeLiteral([]byte(v), false)
	case types.HexLiteral:
		l := &lexer{data: []byte("<" + string(v) + ">")}
		raw = l.hexString()
	default:
		return ""
	}
	if bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		if out, err := dec.Bytes(raw); err == nil {
			return string(out)
		}
	}
	return winAnsi(raw)
}
