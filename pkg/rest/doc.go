// Package rest simulates REST-style endpoints matched on a path suffix and on
// query parameters.
//
// A stored parameter value matches when it equals the actual value, when both
// values are XML documents the comparator accepts, or when it holds a
// placeholder. Placeholder values are captured and spliced into the response,
// which is XML when the stored response starts with '<' and parses, and text
// otherwise.
package rest
