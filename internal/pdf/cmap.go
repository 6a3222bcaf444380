package pdf

import (
	"unicode/utf16"
)

// toUnicode maps character codes to text using the bfchar and bfrange
// sections of a ToUnicode CMap.
type toUnicode struct {
	codeBytes int
	chars     map[uint32]string
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16Text(b []byte) string {
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
	}
	return string(utf16.Decode(units))
}

// parseToUnicode reads a CMap program. Unsupported constructs are ignored.
func parseToUnicode(data []byte) *toUnicode {
	cm := &toUnicode{chars: make(map[uint32]string)}
	for _, op := range Lex(data) {
		switch op.Operator {
		case "endcodespacerange":
			if len(op.Operands) > 0 && op.Operands[0].Kind == OperandString && cm.codeBytes == 0 {
				cm.codeBytes = len(op.Operands[0].Bytes)
			}
		case "endbfchar":
			for i := 0; i+1 < len(op.Operands); i += 2 {
				src, dst := op.Operands[i], op.Operands[i+1]
				if src.Kind != OperandString || dst.Kind != OperandString {
					continue
				}
				cm.noteWidth(len(src.Bytes))
				cm.chars[codeValue(src.Bytes)] = utf16Text(dst.Bytes)
			}
		case "endbfrange":
			for i := 0; i+2 < len(op.Operands); i += 3 {
				lo, hi, dst := op.Operands[i], op.Operands[i+1], op.Operands[i+2]
				if lo.Kind != OperandString || hi.Kind != OperandString {
					continue
				}
				cm.noteWidth(len(lo.Bytes))
				cm.addRange(codeValue(lo.Bytes), codeValue(hi.Bytes), dst)
			}
		}
	}
	if cm.codeBytes == 0 {
		cm.codeBytes = 1
	}
	return cm
}

func (cm *toUnicode) noteWidth(n int) {
	if cm.codeBytes == 0 && n > 0 {
		cm.codeBytes = n
	}
}

// maxRange bounds a single bfrange so a corrupt CMap cannot allocate unboundedly.
const maxRange = 1 << 16

func (cm *toUnicode) addRange(lo, hi uint32, dst Operand) {
	if hi < lo || hi-lo > maxRange {
		return
	}
	switch dst.Kind {
	case OperandString:
		base := append([]byte(nil), dst.Bytes...)
		for code := lo; code <= hi; code++ {
			cm.chars[code] = utf16Text(base)
			incrementLast(base)
		}
	case OperandArray:
		for i, item := range dst.Array {
			code := lo + uint32(i)
			if code > hi {
				break
			}
			if item.Kind == OperandString {
				cm.chars[code] = utf16Text(item.Bytes)
			}
		}
	}
}

// incrementLast adds one to the big-endian value in b, the way consecutive
// codes of a bfrange map to consecutive destination strings.
func incrementLast(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

func (cm *toUnicode) lookup(code uint32) (string, bool) {
	s, ok := cm.chars[code]
	return s, ok
}
