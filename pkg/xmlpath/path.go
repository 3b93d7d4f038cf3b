package xmlpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ErrSyntax is returned for addresses outside the supported grammar.
var ErrSyntax = errors.New("xmlpath: syntax error")

type axis int

const (
	axisChild axis = iota
	axisDescendant
)

type nodeTest int

const (
	testElement nodeTest = iota
	testText
	testAttr
)

type predicate struct {
	index     int
	localName string
}

type step struct {
	axis   axis
	test   nodeTest
	prefix string
	local  string
	preds  []predicate
}

// Path is a compiled address.
type Path struct {
	raw   string
	steps []step
}

// String returns the source text of the address.
func (p *Path) String() string { return p.raw }

// Compile parses an address.
func Compile(expr string) (*Path, error) {
	src := strings.TrimSpace(expr)
	if !strings.HasPrefix(src, "/") {
		return nil, syntaxErr(expr, "address must start with '/'")
	}

	p := &Path{raw: expr}
	rest := src
	for rest != "" {
		ax := axisChild
		switch {
		case strings.HasPrefix(rest, "//"):
			ax = axisDescendant
			rest = rest[2:]
		case strings.HasPrefix(rest, "/"):
			rest = rest[1:]
		default:
			return nil, syntaxErr(expr, "expected '/'")
		}

		raw, remaining, err := cutStep(rest)
		if err != nil {
			return nil, syntaxErr(expr, err.Error())
		}
		rest = remaining

		s, err := parseStep(raw)
		if err != nil {
			return nil, syntaxErr(expr, err.Error())
		}
		s.axis = ax
		if len(p.steps) > 0 && p.steps[len(p.steps)-1].test != testElement {
			return nil, syntaxErr(expr, "text() and attributes must be the last step")
		}
		p.steps = append(p.steps, s)
	}
	if len(p.steps) == 0 {
		return nil, syntaxErr(expr, "empty address")
	}
	return p, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(expr string) *Path {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

func syntaxErr(expr, msg string) error {
	return fmt.Errorf("%w: %q: %s", ErrSyntax, expr, msg)
}

// cutStep splits off the next step, honouring brackets and quotes.
func cutStep(s string) (string, string, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth < 0 {
				return "", "", errors.New("unbalanced ']'")
			}
		case c == '/' && depth == 0:
			if i == 0 {
				return "", "", errors.New("empty step")
			}
			return s[:i], s[i:], nil
		}
	}
	if depth != 0 || quote != 0 {
		return "", "", errors.New("unterminated predicate")
	}
	if s == "" {
		return "", "", errors.New("empty step")
	}
	return s, "", nil
}

func parseStep(raw string) (step, error) {
	var s step

	name := raw
	var preds string
	if i := strings.IndexByte(raw, '['); i >= 0 {
		name, preds = raw[:i], raw[i:]
	}

	switch {
	case strings.HasPrefix(name, "@"):
		if preds != "" {
			return s, errors.New("predicates are not supported on attributes")
		}
		s.test = testAttr
		name = name[1:]
	case name == "text()":
		s.test = testText
	default:
		s.test = testElement
	}

	if s.test != testText {
		if name == "" {
			return s, errors.New("missing name")
		}
		s.prefix, s.local = splitQName(name)
		if s.local == "" || strings.ContainsAny(s.local, "()'\" ") {
			return s, fmt.Errorf("invalid name %q", name)
		}
	}

	for preds != "" {
		end := strings.IndexByte(preds, ']')
		if !strings.HasPrefix(preds, "[") || end < 0 {
			return s, fmt.Errorf("invalid predicate %q", preds)
		}
		pr, err := parsePredicate(strings.TrimSpace(preds[1:end]))
		if err != nil {
			return s, err
		}
		s.preds = append(s.preds, pr)
		preds = preds[end+1:]
	}
	return s, nil
}

func parsePredicate(body string) (predicate, error) {
	if n, err := strconv.Atoi(body); err == nil {
		if n < 1 {
			return predicate{}, fmt.Errorf("position %d out of range", n)
		}
		return predicate{index: n}, nil
	}

	const fn = "local-name()"
	if strings.HasPrefix(body, fn) {
		rest := strings.TrimSpace(body[len(fn):])
		if strings.HasPrefix(rest, "=") {
			lit := strings.TrimSpace(rest[1:])
			if len(lit) >= 2 && (lit[0] == '\'' || lit[0] == '"') && lit[len(lit)-1] == lit[0] {
				return predicate{localName: lit[1 : len(lit)-1]}, nil
			}
		}
	}
	return predicate{}, fmt.Errorf("unsupported predicate [%s]", body)
}

func splitQName(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// Select evaluates the path against doc.
func (p *Path) Select(doc *etree.Document, r Resolver) []Node {
	if doc == nil {
		return nil
	}
	if r == nil {
		r = MapResolver(nil)
	}

	context := []*etree.Element{&doc.Element}
	for i, s := range p.steps {
		last := i == len(p.steps)-1
		switch s.test {
		case testText:
			return selectText(context, s)
		case testAttr:
			return selectAttrs(context, s, r)
		}

		context = selectElements(context, s, r)
		if len(context) == 0 {
			return nil
		}
		if last {
			nodes := make([]Node, len(context))
			for j, e := range context {
				nodes[j] = Node{elem: e}
			}
			return nodes
		}
	}
	return nil
}

// Select compiles expr and evaluates it against doc.
func Select(doc *etree.Document, expr string, r Resolver) ([]Node, error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return p.Select(doc, r), nil
}

func parents(context []*etree.Element, ax axis) []*etree.Element {
	if ax == axisChild {
		return context
	}
	var out []*etree.Element
	for _, e := range context {
		out = appendDescendantsOrSelf(out, e)
	}
	return out
}

func appendDescendantsOrSelf(out []*etree.Element, e *etree.Element) []*etree.Element {
	out = append(out, e)
	for _, c := range e.ChildElements() {
		out = appendDescendantsOrSelf(out, c)
	}
	return out
}

func selectElements(context []*etree.Element, s step, r Resolver) []*etree.Element {
	var out []*etree.Element
	for _, parent := range parents(context, s.axis) {
		var candidates []*etree.Element
		for _, c := range parent.ChildElements() {
			if matchesName(c, s, r) {
				candidates = append(candidates, c)
			}
		}
		out = append(out, applyPredicates(candidates, s.preds)...)
	}
	return out
}

func selectText(context []*etree.Element, s step) []Node {
	var out []Node
	for _, parent := range parents(context, s.axis) {
		var candidates []*etree.CharData
		for _, tok := range parent.Child {
			if cd, ok := tok.(*etree.CharData); ok {
				candidates = append(candidates, cd)
			}
		}
		for _, cd := range applyPredicates(candidates, s.preds) {
			out = append(out, Node{text: cd})
		}
	}
	return out
}

func selectAttrs(context []*etree.Element, s step, r Resolver) []Node {
	var out []Node
	for _, parent := range parents(context, s.axis) {
		for i := range parent.Attr {
			a := &parent.Attr[i]
			if IsDeclaration(*a) || !matchesAttr(a, s, r) {
				continue
			}
			out = append(out, Node{elem: parent, attr: a})
		}
	}
	return out
}

func applyPredicates[T any](candidates []T, preds []predicate) []T {
	for _, pr := range preds {
		if pr.index > 0 {
			if pr.index > len(candidates) {
				return nil
			}
			candidates = candidates[pr.index-1 : pr.index]
			continue
		}
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if e, ok := any(c).(*etree.Element); ok && e.Tag == pr.localName {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	return candidates
}

func matchesName(e *etree.Element, s step, r Resolver) bool {
	if s.local == "*" && s.prefix == "" {
		return true
	}
	if s.local != "*" && e.Tag != s.local {
		return false
	}
	if s.prefix == "" {
		return e.Space == "" && e.NamespaceURI() == ""
	}
	if uri, ok := r.LookupNamespace(s.prefix); ok {
		return e.NamespaceURI() == uri
	}
	return e.Space == s.prefix
}

func matchesAttr(a *etree.Attr, s step, r Resolver) bool {
	if s.local != "*" && a.Key != s.local {
		return false
	}
	if s.prefix == "" {
		return s.local == "*" || a.Space == ""
	}
	if uri, ok := r.LookupNamespace(s.prefix); ok {
		return a.NamespaceURI() == uri
	}
	return a.Space == s.prefix
}
