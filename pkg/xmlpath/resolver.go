package xmlpath

import "github.com/beevik/etree"

// Resolver maps a namespace prefix to its URI.
type Resolver interface {
	LookupNamespace(prefix string) (uri string, ok bool)
}

// MapResolver resolves prefixes from a map captured ahead of time, usually
// while scanning a template for placeholders.
type MapResolver map[string]string

// LookupNamespace implements Resolver.
func (m MapResolver) LookupNamespace(prefix string) (string, bool) {
	uri, ok := m[prefix]
	return uri, ok
}

// DocumentResolver resolves prefixes from the xmlns declarations found in a
// document. Declarations on the root element win, then the first declaration
// in document order.
type DocumentResolver struct {
	doc *etree.Document
}

// NewDocumentResolver creates a resolver backed by doc.
func NewDocumentResolver(doc *etree.Document) DocumentResolver {
	return DocumentResolver{doc: doc}
}

// LookupNamespace implements Resolver.
func (r DocumentResolver) LookupNamespace(prefix string) (string, bool) {
	if r.doc == nil {
		return "", false
	}
	root := r.doc.Root()
	if root == nil {
		return "", false
	}
	return lookupDeclaration(root, prefix)
}

func lookupDeclaration(e *etree.Element, prefix string) (string, bool) {
	for _, a := range e.Attr {
		if declares(a, prefix) {
			return a.Value, true
		}
	}
	for _, child := range e.ChildElements() {
		if uri, ok := lookupDeclaration(child, prefix); ok {
			return uri, true
		}
	}
	return "", false
}

func declares(a etree.Attr, prefix string) bool {
	if prefix == "" {
		return a.Space == "" && a.Key == "xmlns"
	}
	return a.Space == "xmlns" && a.Key == prefix
}

// IsDeclaration reports whether a is a namespace declaration attribute.
func IsDeclaration(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// For returns a MapResolver when namespaces were captured, otherwise a
// resolver derived from doc.
func For(namespaces map[string]string, doc *etree.Document) Resolver {
	if namespaces != nil {
		return MapResolver(namespaces)
	}
	return NewDocumentResolver(doc)
}
