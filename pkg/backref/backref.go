// Package backref scans templates for placeholders such as *(ID)* and splices
// captured values back into text and XML documents.
//
// A placeholder's id is the full token including its markers. The same id
// may occur at several capture and substitution locations.
package backref

import (
	"regexp"
	"sort"
	"strings"
)

// Pattern matches a placeholder token.
var Pattern = regexp.MustCompile(`\*\(([a-zA-Z0-9_\s-]*)\)\*`)

// Wildcard is the token that matches any text in a stored value.
const Wildcard = "*"

// Location ties a placeholder id to an address: an XML address, or a
// parameter name for flat maps.
type Location struct {
	ID      string
	Address string
}

// Value is a captured value for a placeholder id.
type Value struct {
	ID    string
	Value string
}

// Contains reports whether s contains at least one placeholder.
func Contains(s string) bool {
	return Pattern.MatchString(s)
}

// IsToken reports whether s consists of exactly one placeholder.
func IsToken(s string) bool {
	loc := Pattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// Find returns every placeholder id in s, in order of appearance.
func Find(s string) []string {
	return Pattern.FindAllString(s, -1)
}

// ScanParams returns a location for every placeholder found in the values of
// params. The parameter name is the address. Keys are visited in sorted order.
func ScanParams(params map[string]string) []Location {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var locs []Location
	for _, k := range keys {
		for _, id := range Find(params[k]) {
			locs = append(locs, Location{ID: id, Address: k})
		}
	}
	return locs
}

// Lookup returns the first value captured for id.
func Lookup(values []Value, id string) (string, bool) {
	for _, v := range values {
		if v.ID == id {
			return v.Value, true
		}
	}
	return "", false
}

// ReplaceText splices every value into text at each occurrence of its id.
// Inserted text is not rescanned; ids without a value are left untouched.
func ReplaceText(text string, values []Value) string {
	for _, v := range values {
		if v.ID == "" {
			continue
		}
		text = strings.ReplaceAll(text, v.ID, v.Value)
	}
	return text
}

// Merge appends the values from extra whose ids are not yet present in base.
func Merge(base, extra []Value) []Value {
	for _, v := range extra {
		if _, ok := Lookup(base, v.ID); !ok {
			base = append(base, v)
		}
	}
	return base
}
