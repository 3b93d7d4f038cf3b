package xmlpath

import "github.com/beevik/etree"

// Node is an element, character data or attribute selected by a Path.
type Node struct {
	elem *etree.Element
	text *etree.CharData
	attr *etree.Attr
}

// Value returns the node's string value. Elements yield their leading text.
func (n Node) Value() string {
	switch {
	case n.attr != nil:
		return n.attr.Value
	case n.text != nil:
		return n.text.Data
	case n.elem != nil:
		return n.elem.Text()
	}
	return ""
}

// SetValue replaces the node's string value in place.
func (n Node) SetValue(v string) {
	switch {
	case n.attr != nil:
		n.attr.Value = v
	case n.text != nil:
		n.text.SetData(v)
	case n.elem != nil:
		n.elem.SetText(v)
	}
}

// IsAttr reports whether the node is an attribute.
func (n Node) IsAttr() bool { return n.attr != nil }

// IsText reports whether the node is character data.
func (n Node) IsText() bool { return n.text != nil }
