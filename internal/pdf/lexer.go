// Package pdf reads PDF pages as ordered drawing primitives and renders
// selective copies of them. The object model is pdfcpu; rasterization is MuPDF
// through go-fitz.
package pdf

import (
	"bytes"
	"encoding/hex"
	"strconv"
)

// OperandKind tells which field of an Operand is set.
type OperandKind int

const (
	OperandNumber OperandKind = iota
	OperandString
	OperandName
	OperandArray
	OperandDict
	OperandBool
	OperandNull
)

// Operand is one content-stream operand. Strings are stored decoded (escapes
// and hex resolved); dictionaries are kept only as their key/value list.
type Operand struct {
	Kind  OperandKind
	Num   float64
	Bytes []byte
	Name  string
	Array []Operand
	Bool  bool
}

// Op is an operator with its operands and the byte span [Start, End) it
// occupies in the source stream, operands included.
type Op struct {
	Operator string
	Operands []Operand
	Start    int
	End      int
}

func (o Op) num(i int) float64 {
	if i < len(o.Operands) && o.Operands[i].Kind == OperandNumber {
		return o.Operands[i].Num
	}
	return 0
}

func (o Op) nums(n int) ([]float64, bool) {
	if len(o.Operands) < n {
		return nil, false
	}
	out := make([]float64, n)
	base := len(o.Operands) - n
	for i := 0; i < n; i++ {
		a := o.Operands[base+i]
		if a.Kind != OperandNumber {
			return nil, false
		}
		out[i] = a.Num
	}
	return out, true
}

func (o Op) name(i int) string {
	if i < len(o.Operands) && o.Operands[i].Kind == OperandName {
		return o.Operands[i].Name
	}
	return ""
}

// lexer tokenizes content streams and CMap programs. It is lenient: bytes it
// cannot make sense of are skipped.
type lexer struct {
	data []byte
	pos  int
}

// Lex splits data into operations in stream order.
func Lex(data []byte) []Op {
	l := &lexer{data: data}
	var (
		ops      []Op
		operands []Operand
		start    = -1
	)
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			break
		}
		tokStart := l.pos
		operand, operator, ok := l.next()
		if !ok {
			continue
		}
		if start < 0 {
			start = tokStart
		}
		if operator == "" {
			operands = append(operands, operand)
			continue
		}
		op := Op{Operator: operator, Operands: operands, Start: start}
		if operator == "BI" {
			op.Operands = append(op.Operands, l.inlineImage()...)
		}
		op.End = l.pos
		ops = append(ops, op)
		operands = nil
		start = -1
	}
	return ops
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// next reads one token. It returns either an operand or an operator name;
// ok is false for bytes that were skipped.
func (l *lexer) next() (Operand, string, bool) {
	c := l.data[l.pos]
	switch {
	case c == '(':
		return Operand{Kind: OperandString, Bytes: l.literalString()}, "", true
	case c == '<' && l.peek(1) == '<':
		l.pos += 2
		return Operand{Kind: OperandDict, Array: l.collect(">>")}, "", true
	case c == '<':
		return Operand{Kind: OperandString, Bytes: l.hexString()}, "", true
	case c == '/':
		return Operand{Kind: OperandName, Name: l.name()}, "", true
	case c == '[':
		l.pos++
		return Operand{Kind: OperandArray, Array: l.collect("]")}, "", true
	case isDelimiter(c):
		l.pos++
		return Operand{}, "", false
	}

	tok := l.regular()
	switch tok {
	case "true", "false":
		return Operand{Kind: OperandBool, Bool: tok == "true"}, "", true
	case "null":
		return Operand{Kind: OperandNull}, "", true
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil && looksNumeric(tok) {
		return Operand{Kind: OperandNumber, Num: f}, "", true
	}
	return Operand{}, tok, true
}

func looksNumeric(tok string) bool {
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if !(c >= '0' && c <= '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

func (l *lexer) peek(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

func (l *lexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// collect reads operands until the closing token. Operators inside arrays are
// not valid PDF and are dropped.
func (l *lexer) collect(closing string) []Operand {
	var items []Operand
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return items
		}
		if bytes.HasPrefix(l.data[l.pos:], []byte(closing)) {
			l.pos += len(closing)
			return items
		}
		if closing == ">>" && l.data[l.pos] == ']' || closing == "]" && l.data[l.pos] == '>' && l.peek(1) == '>' {
			return items
		}
		operand, operator, ok := l.next()
		if ok && operator == "" {
			items = append(items, operand)
		}
	}
}

func (l *lexer) name() string {
	l.pos++
	raw := l.regular()
	if !bytes.ContainsRune([]byte(raw), '#') {
		return raw
	}
	var b bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

func (l *lexer) hexString() []byte {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		c := l.data[l.pos]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	_, _ = hex.Decode(out, digits)
	return out
}

func (l *lexer) literalString() []byte {
	l.pos++
	out, n := unescapeLiteral(l.data[l.pos:], true)
	l.pos += n
	return out
}

// unescapeLiteral decodes the body of a literal string. With delimited set it
// stops after the balancing ')' and reports the bytes consumed.
func unescapeLiteral(data []byte, delimited bool) ([]byte, int) {
	var out []byte
	depth := 0
	i := 0
	for i < len(data) {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			i++
			e := data[i]
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := 0
					j := 0
					for j < 3 && i < len(data) && data[i] >= '0' && data[i] <= '7' {
						v = v*8 + int(data[i]-'0')
						i++
						j++
					}
					out = append(out, byte(v))
					continue
				}
				out = append(out, e)
			}
			i++
		case c == '(' && delimited:
			depth++
			out = append(out, c)
			i++
		case c == ')' && delimited:
			if depth == 0 {
				return out, i + 1
			}
			depth--
			out = append(out, c)
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return out, i
}

// inlineImage consumes the dictionary, data and EI of an inline image whose
// BI was just read. The dictionary entries are returned as operands.
func (l *lexer) inlineImage() []Operand {
	var entries []Operand
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return entries
		}
		operand, operator, ok := l.next()
		if !ok {
			continue
		}
		if operator == "ID" {
			break
		}
		if operator == "" {
			entries = append(entries, operand)
		}
	}
	if l.pos < len(l.data) && isSpace(l.data[l.pos]) {
		l.pos++
	}
	for l.pos < len(l.data) {
		if l.data[l.pos] == 'E' && l.peek(1) == 'I' &&
			(l.pos == 0 || isSpace(l.data[l.pos-1])) &&
			(l.pos+2 >= len(l.data) || isSpace(l.data[l.pos+2]) || isDelimiter(l.data[l.pos+2])) {
			l.pos += 2
			return entries
		}
		l.pos++
	}
	return entries
}
