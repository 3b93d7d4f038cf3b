// Package httputil provides shared HTTP utilities for consistent response handling.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Content types written by the simulator.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain; charset=UTF-8"
)

// XMLContentType returns the content type of an XML body encoded in charset.
func XMLContentType(charset string) string {
	return "text/xml; charset=" + charset
}

// setContentType sets the Content-Type header unless the caller already did.
func setContentType(w http.ResponseWriter, contentType string) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", contentType)
	}
}

// WriteJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteText writes a plain text response with the given status code.
// A Content-Type already present on w is kept.
func WriteText(w http.ResponseWriter, status int, text string) {
	setContentType(w, ContentTypeText)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// WriteXML writes an encoded XML document. body must already be encoded in
// charset. A Content-Type already present on w is kept.
func WriteXML(w http.ResponseWriter, status int, body []byte, charset string) {
	setContentType(w, XMLContentType(charset))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteOK writes a 200 OK plain text response.
func WriteOK(w http.ResponseWriter, text string) {
	WriteText(w, http.StatusOK, text)
}

// WriteBadRequest writes a 400 Bad Request plain text response.
func WriteBadRequest(w http.ResponseWriter, text string) {
	WriteText(w, http.StatusBadRequest, text)
}

// WriteNotFound writes a 404 Not Found plain text response.
func WriteNotFound(w http.ResponseWriter, text string) {
	WriteText(w, http.StatusNotFound, text)
}

// WriteInternalError writes a 500 Internal Server Error plain text response.
func WriteInternalError(w http.ResponseWriter, text string) {
	WriteText(w, http.StatusInternalServerError, text)
}
