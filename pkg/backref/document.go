package backref

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/getmockd/simulator/pkg/xmlpath"
)

const textStep = "text()"

// ScanDocument walks doc and returns a location for every placeholder found
// in character data and attribute values, plus every namespace prefix seen
// mapped to its URI.
func ScanDocument(doc *etree.Document) ([]Location, map[string]string) {
	namespaces := make(map[string]string)
	if doc == nil || doc.Root() == nil {
		return nil, namespaces
	}

	root := doc.Root()
	s := &scanner{namespaces: namespaces}
	s.element(root, "/"+selector(root)+"[1]")
	return s.locations, namespaces
}

type scanner struct {
	locations  []Location
	namespaces map[string]string
}

func (s *scanner) element(e *etree.Element, address string) {
	s.recordPrefix(e.Space, e.NamespaceURI())

	counts := make(map[string]int)
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			name := selector(t)
			counts[name]++
			s.element(t, address+"/"+name+"["+strconv.Itoa(counts[name])+"]")
		case *etree.CharData:
			counts[textStep]++
			s.value(t.Data, address+"/"+textStep+"["+strconv.Itoa(counts[textStep])+"]")
		}
	}

	for i := range e.Attr {
		a := &e.Attr[i]
		if xmlpath.IsDeclaration(*a) {
			continue
		}
		s.recordPrefix(a.Space, a.NamespaceURI())
		s.value(a.Value, address+"/@"+a.FullKey())
	}
}

func (s *scanner) value(v, address string) {
	for _, id := range Find(v) {
		s.locations = append(s.locations, Location{ID: id, Address: address})
	}
}

func (s *scanner) recordPrefix(prefix, uri string) {
	if prefix == "" {
		return
	}
	if _, seen := s.namespaces[prefix]; !seen {
		s.namespaces[prefix] = uri
	}
}

// selector names e in an address step. Elements in a default namespace get
// a local-name test so the address does not depend on a prefix.
func selector(e *etree.Element) string {
	if e.Space == "" && e.NamespaceURI() != "" {
		return "*[local-name()='" + e.Tag + "']"
	}
	return e.FullTag()
}

// Locate evaluates explicitly declared addresses against doc and returns a
// location for every placeholder found in the selected values.
func Locate(doc *etree.Document, addresses []string, r xmlpath.Resolver) ([]Location, error) {
	var locs []Location
	for _, addr := range addresses {
		p, err := xmlpath.Compile(addr)
		if err != nil {
			return nil, err
		}
		for _, n := range p.Select(doc, r) {
			for _, id := range Find(n.Value()) {
				locs = append(locs, Location{ID: id, Address: addr})
			}
		}
	}
	return locs, nil
}

// Capture reads the value at each location's address in doc. Only the first
// selected node of an address is read.
func Capture(doc *etree.Document, locs []Location, r xmlpath.Resolver) ([]Value, error) {
	var values []Value
	for _, loc := range locs {
		p, err := xmlpath.Compile(loc.Address)
		if err != nil {
			return nil, err
		}
		nodes := p.Select(doc, r)
		if len(nodes) == 0 {
			continue
		}
		values = append(values, Value{ID: loc.ID, Value: nodes[0].Value()})
	}
	return values, nil
}

// Render returns a copy of template with values spliced in at every location.
// The template itself is never modified. A nil resolver resolves prefixes
// from the copy's own declarations.
func Render(template *etree.Document, locs []Location, values []Value, r xmlpath.Resolver) (*etree.Document, error) {
	if template == nil {
		return nil, nil
	}
	doc := template.Copy()
	if r == nil {
		r = xmlpath.NewDocumentResolver(doc)
	}

	for _, loc := range locs {
		v, ok := Lookup(values, loc.ID)
		if !ok {
			continue
		}
		p, err := xmlpath.Compile(loc.Address)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", loc.ID, err)
		}
		one := []Value{{ID: loc.ID, Value: v}}
		for _, n := range p.Select(doc, r) {
			n.SetValue(ReplaceText(n.Value(), one))
		}
	}
	return doc, nil
}
