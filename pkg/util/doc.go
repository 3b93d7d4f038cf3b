// Package util holds small helpers for logging request payloads.
package util
