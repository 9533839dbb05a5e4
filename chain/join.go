package chain

import "strings"

// Join concatenates parts with sep between each pair. When every part and
// the separator are text the result is text. Otherwise the parts are
// concatenated bit by bit, so padded parts do not leave gaps.
func Join(parts []*Chain, sep *Chain) *Chain {
	if sep == nil {
		sep = Empty()
	}
	if len(parts) == 0 {
		return Empty()
	}

	allText := sep.text
	for _, part := range parts {
		allText = allText && part.text
	}
	if allText {
		texts := make([]string, len(parts))
		for i, part := range parts {
			texts[i], _ = part.Text()
		}
		s, _ := sep.Text()
		return FromString(strings.Join(texts, s))
	}

	var w bitWriter
	for i, part := range parts {
		if i > 0 {
			w.write(sep.rawBytes(), sep.BitLen())
		}
		w.write(part.rawBytes(), part.BitLen())
	}
	return &Chain{bytes: w.buf, padding: w.padding(), hasBytes: true}
}

// bitWriter appends bit sequences most significant bit first.
type bitWriter struct {
	buf  []byte
	bits int
}

func (w *bitWriter) write(src []byte, bits int) {
	shift := w.bits % 8
	if shift == 0 {
		full := bits / 8
		w.buf = append(w.buf, src[:full]...)
		if rem := bits % 8; rem > 0 {
			w.buf = append(w.buf, src[full]&^byte(1<<(8-rem)-1))
		}
		w.bits += bits
		return
	}
	for i := 0; i < bits; i++ {
		bit := (src[i/8] >> (7 - i%8)) & 1
		pos := w.bits + i
		if pos/8 == len(w.buf) {
			w.buf = append(w.buf, 0)
		}
		w.buf[pos/8] |= bit << (7 - pos%8)
	}
	w.bits += bits
}

func (w *bitWriter) padding() int {
	return (8 - w.bits%8) % 8
}
