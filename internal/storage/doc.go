// Package storage holds the in-memory registries of test records.
//
// Ordered keeps records in registration order behind a single mutex. Every
// operation, including the scan-promote-count sequence of a match, runs as
// one critical section, so concurrent executions never match the same
// record twice for one request or corrupt the order.
package storage
