package xmlcompare

import "fmt"

// Kind identifies what differs between the control and the actual node.
type Kind int

// Difference kinds.
const (
	KindRoot Kind = iota
	KindElementName
	KindNamespaceURI
	KindNamespacePrefix
	KindAttrCount
	KindAttrMissing
	KindAttrUnexpected
	KindAttrValue
	KindChildCount
	KindChildMissing
	KindChildUnexpected
	KindChildSequence
	KindText
)

var kindNames = map[Kind]string{
	KindRoot:            "root",
	KindElementName:     "element name",
	KindNamespaceURI:    "namespace uri",
	KindNamespacePrefix: "namespace prefix",
	KindAttrCount:       "attribute count",
	KindAttrMissing:     "attribute missing",
	KindAttrUnexpected:  "attribute unexpected",
	KindAttrValue:       "attribute value",
	KindChildCount:      "child count",
	KindChildMissing:    "child missing",
	KindChildUnexpected: "child unexpected",
	KindChildSequence:   "child sequence",
	KindText:            "text",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Class is the verdict on a single difference.
type Class int

// Classes, from harmless to fatal.
const (
	// ClassRecoverable differences do not affect the match: sibling order,
	// namespace prefixes bound to the same URI.
	ClassRecoverable Class = iota
	// ClassBackReference differences capture a value for a placeholder.
	ClassBackReference
	// ClassWildcard differences are accepted by a wildcard pattern.
	ClassWildcard
	// ClassUnacceptable differences fail the comparison.
	ClassUnacceptable
)

func (c Class) String() string {
	switch c {
	case ClassRecoverable:
		return "recoverable"
	case ClassBackReference:
		return "back-reference"
	case ClassWildcard:
		return "wildcard"
	case ClassUnacceptable:
		return "unacceptable"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Difference is one classified difference between two documents.
type Difference struct {
	Kind  Kind
	Class Class
	// Location addresses the node in the actual document, or the control
	// document when the actual node does not exist.
	Location string
	Control  string
	Actual   string
}

func (d Difference) String() string {
	return fmt.Sprintf("%s %s at %s: expected %q but was %q", d.Class, d.Kind, d.Location, d.Control, d.Actual)
}
