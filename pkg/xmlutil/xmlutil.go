// Package xmlutil parses and serializes the XML documents handled by the
// simulator and normalizes the charsets they arrive in.
package xmlutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when a request does not declare one.
const DefaultCharset = "UTF-8"

var (
	// ErrNoRoot is returned for input that holds no root element.
	ErrNoRoot = errors.New("xml: no root element")

	// ErrUnknownCharset is returned for charset labels x/text does not know.
	ErrUnknownCharset = errors.New("xml: unknown charset")
)

// LooksLikeXML reports whether s should be treated as an XML candidate.
func LooksLikeXML(s string) bool {
	return strings.HasPrefix(s, "<")
}

// Parse parses an already decoded string. Any encoding named in the XML
// declaration is ignored since the text is Unicode already.
func Parse(s string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(s); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return doc, nil
}

// ParseReader parses raw bytes. A non-empty charset overrides the encoding in
// the XML declaration; otherwise the declaration decides.
func ParseReader(r io.Reader, cs string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if cs != "" {
		enc, err := Encoding(cs)
		if err != nil {
			return nil, err
		}
		r = transform.NewReader(r, enc.NewDecoder())
	} else {
		doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	}

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	if doc.Root() == nil {
		return nil, ErrNoRoot
	}
	return doc, nil
}

// Encoding looks up a charset label, trying IANA names before the WHATWG
// labels browsers send.
func Encoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	if enc, err := ianaindex.IANA.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharset, label)
	}
	return enc, nil
}

// CanonicalCharset returns the MIME name of label, falling back to its IANA
// registry name when it has no MIME name. Empty or unknown labels yield
// DefaultCharset.
func CanonicalCharset(label string) string {
	enc, err := Encoding(label)
	if err != nil {
		return DefaultCharset
	}
	name, err := ianaindex.MIME.Name(enc)
	if err != nil || name == "" {
		name, err = ianaindex.IANA.Name(enc)
	}
	if err != nil || name == "" || strings.EqualFold(name, DefaultCharset) {
		return DefaultCharset
	}
	return name
}

// DecodeString converts bytes in the given charset to a UTF-8 string.
func DecodeString(b []byte, cs string) (string, error) {
	if cs == "" || strings.EqualFold(cs, DefaultCharset) {
		return string(b), nil
	}
	enc, err := Encoding(cs)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", cs, err)
	}
	return string(out), nil
}

// String serializes doc without an XML declaration, dropping any the
// document was parsed with.
func String(doc *etree.Document) (string, error) {
	if doc == nil || doc.Root() == nil {
		return "", ErrNoRoot
	}
	var buf bytes.Buffer
	doc.Root().WriteTo(&buf, &doc.WriteSettings)
	return buf.String(), nil
}

// Encode serializes doc with an XML declaration for the given charset and
// encodes the result in that charset.
func Encode(doc *etree.Document, cs string) ([]byte, error) {
	body, err := String(doc)
	if err != nil {
		return nil, err
	}
	cs = CanonicalCharset(cs)
	text := `<?xml version="1.0" encoding="` + cs + `"?>` + body
	if cs == DefaultCharset {
		return []byte(text), nil
	}
	enc, err := Encoding(cs)
	if err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cs, err)
	}
	return out, nil
}
