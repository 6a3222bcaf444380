package pdf

import (
	"bytes"
	"strconv"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/layering"
)

// Text render modes 4-7 add the glyphs to the clip path.
const (
	modeInvisible     = 3
	modeInvisibleClip = 7
)

// rebuild regenerates a content stream in which only the primitives whose
// sequence id falls in keep still paint. State and marked-content operators
// are always kept. Suppressed text is shown invisibly so that later text is
// positioned as before, and suppressed paths that also clip keep their clip.
func rebuild(content []byte, ops []Op, prims []traced, keep domain.IDRange) []byte {
	owner := make([]int, len(ops))
	for i := range owner {
		owner[i] = -1
	}
	for seq, p := range prims {
		for i := p.first; i <= p.last && i < len(ops); i++ {
			owner[i] = seq
		}
	}

	var out bytes.Buffer
	write := func(op Op) {
		out.Write(content[op.Start:op.End])
		out.WriteByte('\n')
	}

	for i, op := range ops {
		seq := owner[i]
		if seq < 0 || keep.Contains(seq) {
			write(op)
			continue
		}
		p := prims[seq]
		switch p.raw.Tag {
		case layering.TagText:
			mode := modeInvisible
			if p.textMode >= 4 {
				mode = modeInvisibleClip
			}
			out.WriteString(strconv.Itoa(mode) + " Tr\n")
			write(op)
			out.WriteString(strconv.Itoa(p.textMode) + " Tr\n")
		case layering.TagPath:
			if !p.clip {
				continue
			}
			if i == p.last {
				out.WriteString("n\n")
			} else {
				write(op)
			}
		}
	}
	return out.Bytes()
}

// underlay returns a content fragment that paints box in black beneath
// everything else.
func underlay(box domain.BBox) []byte {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []byte("q 0 g " + f(box.X1) + " " + f(box.Y1) + " " + f(box.Width()) + " " + f(box.Height()) + " re f Q\n")
}
