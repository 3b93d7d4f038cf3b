// Package simulator defines the protocol-neutral request, response and error
// types shared by the REST, WS and socket simulators, and the operations the
// HTTP adapter calls on them.
//
// A setup call turns a Request's parameters into a test record. An execute
// call matches a Request against the registered records and renders a
// Response from a copy of the matched record's template.
package simulator
