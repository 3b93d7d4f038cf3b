package xmlcompare

import (
	"strings"

	"github.com/beevik/etree"
)

// item is a significant child: an element, or a run of character data
// normalized for whitespace.
type item struct {
	elem *etree.Element
	text string
}

// content returns the significant children of e. Adjacent text and CDATA
// merge into one run; whitespace-only runs are dropped.
func content(e *etree.Element) []item {
	var out []item
	var buf strings.Builder
	flush := func() {
		if t := normalize(buf.String()); t != "" {
			out = append(out, item{text: t})
		}
		buf.Reset()
	}
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			buf.WriteString(t.Data)
		case *etree.Element:
			flush()
			out = append(out, item{elem: t})
		}
	}
	flush()
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func split(items []item) ([]*etree.Element, []string) {
	var els []*etree.Element
	var texts []string
	for _, it := range items {
		if it.elem != nil {
			els = append(els, it.elem)
		} else {
			texts = append(texts, it.text)
		}
	}
	return els, texts
}

func sameName(a, b *etree.Element) bool {
	return a.Tag == b.Tag && a.NamespaceURI() == b.NamespaceURI()
}

// qualifies reports whether a can stand in for c regardless of position:
// same expanded name and recursively equal content.
func qualifies(c, a *etree.Element) bool {
	if !sameName(c, a) {
		return false
	}
	ck, ak := content(c), content(a)
	if len(ck) != len(ak) {
		return false
	}
	for i := range ck {
		switch {
		case ck[i].elem == nil && ak[i].elem == nil:
			if ck[i].text != ak[i].text {
				return false
			}
		case ck[i].elem != nil && ak[i].elem != nil:
			if !qualifies(ck[i].elem, ak[i].elem) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// pair maps every control element to an actual element index, or -1, and
// returns the actual indexes left over. Qualifying elements pair first, then
// remaining elements pair in order by name.
func pair(ctrl, act []*etree.Element) ([]int, []int) {
	pairs := make([]int, len(ctrl))
	used := make([]bool, len(act))
	for i := range pairs {
		pairs[i] = -1
	}

	for ci, c := range ctrl {
		for ai, a := range act {
			if !used[ai] && qualifies(c, a) {
				pairs[ci], used[ai] = ai, true
				break
			}
		}
	}
	for ci, c := range ctrl {
		if pairs[ci] >= 0 {
			continue
		}
		for ai, a := range act {
			if !used[ai] && sameName(c, a) {
				pairs[ci], used[ai] = ai, true
				break
			}
		}
	}

	var unmatched []int
	for ai := range act {
		if !used[ai] {
			unmatched = append(unmatched, ai)
		}
	}
	return pairs, unmatched
}
