// Package xmlcompare compares XML documents structurally and decides whether
// an actual request is an acceptable match for a stored control document.
//
// Whitespace formatting, CDATA sections, comments, attribute order and
// sibling order are not significant. Text and attribute values in the control
// document may hold placeholders, which capture the actual value, or
// wildcards, which accept any text.
package xmlcompare

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/getmockd/simulator/pkg/backref"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/xmlpath"
)

// Result holds every classified difference and the values captured for
// placeholders, in document order.
type Result struct {
	Differences []Difference
	Values      []backref.Value
}

// Identical reports whether no difference at all was found.
func (r *Result) Identical() bool {
	return len(r.Differences) == 0
}

// Acceptable reports whether every difference is recoverable, a placeholder
// capture or a wildcard hit.
func (r *Result) Acceptable() bool {
	return len(r.Unacceptable()) == 0
}

// Unacceptable returns the differences that fail the comparison.
func (r *Result) Unacceptable() []Difference {
	var out []Difference
	for _, d := range r.Differences {
		if d.Class == ClassUnacceptable {
			out = append(out, d)
		}
	}
	return out
}

func (r *Result) add(d Difference) {
	r.Differences = append(r.Differences, d)
}

// Comparator compares control documents against actual documents.
// It is safe for concurrent use.
type Comparator struct {
	log      *slog.Logger
	patterns *patternCache
}

// New creates a Comparator.
func New() *Comparator {
	return &Comparator{
		log:      logging.Nop(),
		patterns: newPatternCache(),
	}
}

// SetLogger sets the operational logger for the comparator.
func (c *Comparator) SetLogger(log *slog.Logger) {
	if log != nil {
		c.log = log
	} else {
		c.log = logging.Nop()
	}
}

var defaultComparator = New()

// Match compares with a shared Comparator that does not log.
func Match(control, actual *etree.Document) ([]backref.Value, bool) {
	return defaultComparator.Match(control, actual)
}

// Match returns the captured values when actual is an acceptable match for
// control. Captures of a failed comparison are discarded.
func (c *Comparator) Match(control, actual *etree.Document) ([]backref.Value, bool) {
	r := c.Compare(control, actual)
	if !r.Acceptable() {
		return nil, false
	}
	if r.Values == nil {
		return []backref.Value{}, true
	}
	return r.Values, true
}

// Compare classifies every difference between control and actual.
func (c *Comparator) Compare(control, actual *etree.Document) *Result {
	r := &Result{}
	cr, ar := root(control), root(actual)
	switch {
	case cr == nil && ar == nil:
	case cr == nil || ar == nil:
		r.add(Difference{Kind: KindRoot, Class: ClassUnacceptable, Location: "/", Control: tagOf(cr), Actual: tagOf(ar)})
	default:
		c.element(cr, ar, "/"+ar.FullTag()+"[1]", r)
	}

	for _, d := range r.Differences {
		c.log.Debug("xml difference", "class", d.Class.String(), "kind", d.Kind.String(),
			"location", d.Location, "control", d.Control, "actual", d.Actual)
	}
	return r
}

func root(doc *etree.Document) *etree.Element {
	if doc == nil {
		return nil
	}
	return doc.Root()
}

func tagOf(e *etree.Element) string {
	if e == nil {
		return ""
	}
	return e.FullTag()
}

func (c *Comparator) element(ctrl, act *etree.Element, loc string, r *Result) {
	if ctrl.Tag != act.Tag {
		r.add(Difference{Kind: KindElementName, Class: ClassUnacceptable, Location: loc, Control: ctrl.Tag, Actual: act.Tag})
		return
	}
	if cu, au := ctrl.NamespaceURI(), act.NamespaceURI(); cu != au {
		r.add(Difference{Kind: KindNamespaceURI, Class: ClassUnacceptable, Location: loc, Control: cu, Actual: au})
		return
	}
	if ctrl.Space != act.Space {
		r.add(Difference{Kind: KindNamespacePrefix, Class: ClassRecoverable, Location: loc, Control: ctrl.Space, Actual: act.Space})
	}

	c.attributes(ctrl, act, loc, r)
	c.children(ctrl, act, loc, r)
}

type attrKey struct {
	space string
	local string
}

func keyOf(a *etree.Attr) attrKey {
	if uri := a.NamespaceURI(); uri != "" {
		return attrKey{space: uri, local: a.Key}
	}
	return attrKey{space: a.Space, local: a.Key}
}

func attributes(e *etree.Element) []*etree.Attr {
	var out []*etree.Attr
	for i := range e.Attr {
		if !xmlpath.IsDeclaration(e.Attr[i]) {
			out = append(out, &e.Attr[i])
		}
	}
	return out
}

func (c *Comparator) attributes(ctrl, act *etree.Element, loc string, r *Result) {
	ca, aa := attributes(ctrl), attributes(act)
	if len(ca) != len(aa) {
		r.add(Difference{Kind: KindAttrCount, Class: ClassUnacceptable, Location: loc,
			Control: strconv.Itoa(len(ca)), Actual: strconv.Itoa(len(aa))})
	}

	byKey := make(map[attrKey]*etree.Attr, len(aa))
	for _, a := range aa {
		byKey[keyOf(a)] = a
	}
	seen := make(map[attrKey]bool, len(ca))
	for _, x := range ca {
		k := keyOf(x)
		seen[k] = true
		y, ok := byKey[k]
		if !ok {
			r.add(Difference{Kind: KindAttrMissing, Class: ClassUnacceptable, Location: loc + "/@" + x.FullKey(), Control: x.Value})
			continue
		}
		c.value(KindAttrValue, loc+"/@"+y.FullKey(), x.Value, y.Value, r)
	}
	for _, y := range aa {
		if !seen[keyOf(y)] {
			r.add(Difference{Kind: KindAttrUnexpected, Class: ClassUnacceptable, Location: loc + "/@" + y.FullKey(), Actual: y.Value})
		}
	}
}

func (c *Comparator) children(ctrl, act *etree.Element, loc string, r *Result) {
	cEls, cTexts := split(content(ctrl))
	aEls, aTexts := split(content(act))

	for i := 0; i < max(len(cTexts), len(aTexts)); i++ {
		c.value(KindText, loc+"/text()["+strconv.Itoa(i+1)+"]", at(cTexts, i), at(aTexts, i), r)
	}

	if len(cEls) != len(aEls) {
		r.add(Difference{Kind: KindChildCount, Class: ClassUnacceptable, Location: loc,
			Control: strconv.Itoa(len(cEls)), Actual: strconv.Itoa(len(aEls))})
	}

	pairs, unmatched := pair(cEls, aEls)
	for ci, ai := range pairs {
		if ai < 0 {
			r.add(Difference{Kind: KindChildMissing, Class: ClassUnacceptable,
				Location: loc + "/" + cEls[ci].FullTag(), Control: cEls[ci].FullTag()})
			continue
		}
		childLoc := loc + "/" + step(aEls, ai)
		if ci != ai {
			r.add(Difference{Kind: KindChildSequence, Class: ClassRecoverable, Location: childLoc,
				Control: strconv.Itoa(ci + 1), Actual: strconv.Itoa(ai + 1)})
		}
		c.element(cEls[ci], aEls[ai], childLoc, r)
	}
	for _, ai := range unmatched {
		r.add(Difference{Kind: KindChildUnexpected, Class: ClassUnacceptable,
			Location: loc + "/" + step(aEls, ai), Actual: aEls[ai].FullTag()})
	}
}

// value classifies a text or attribute difference and records captures.
func (c *Comparator) value(kind Kind, loc, ctrl, act string, r *Result) {
	if ctrl == act {
		return
	}
	d := Difference{Kind: kind, Location: loc, Control: ctrl, Actual: act}
	switch {
	case backref.Contains(ctrl):
		d.Class = ClassBackReference
		r.Values = append(r.Values, c.capture(ctrl, act)...)
	case strings.Contains(ctrl, backref.Wildcard):
		if backref.Contains(act) || c.patterns.wildcard(ctrl).MatchString(act) {
			d.Class = ClassWildcard
		} else {
			d.Class = ClassUnacceptable
		}
	default:
		d.Class = ClassUnacceptable
	}
	r.add(d)
}

// capture extracts one value per placeholder in ctrl. A control that is a
// single token captures the whole actual value; placeholders embedded in
// literal text capture the text at their position, or the whole actual
// value when the literal parts do not line up.
func (c *Comparator) capture(ctrl, act string) []backref.Value {
	if backref.IsToken(ctrl) {
		return []backref.Value{{ID: ctrl, Value: act}}
	}

	ids := backref.Find(ctrl)
	values := make([]backref.Value, 0, len(ids))
	if m := c.patterns.capture(ctrl).FindStringSubmatch(act); m != nil {
		for i, id := range ids {
			values = append(values, backref.Value{ID: id, Value: m[i+1]})
		}
		return values
	}
	for _, id := range ids {
		values = append(values, backref.Value{ID: id, Value: act})
	}
	return values
}

// at reads a missing text node as empty, so a placeholder still captures "".
func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// step names the i-th element of siblings for a location, counting same-name
// siblings only.
func step(siblings []*etree.Element, i int) string {
	name := siblings[i].FullTag()
	n := 0
	for _, s := range siblings[:i+1] {
		if s.FullTag() == name {
			n++
		}
	}
	return name + "[" + strconv.Itoa(n) + "]"
}
