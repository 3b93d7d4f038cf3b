// Package socket simulates raw TCP services.
//
// Requests are unframed: whatever a single read returns is one request, and
// it matches a record only when it equals the record's request literally.
// A record may limit how often it matches and may ask for the connection to
// be closed after its response has been written.
package socket
