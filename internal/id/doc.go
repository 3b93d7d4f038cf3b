// Package id generates identifiers for socket sessions and request logs.
package id
