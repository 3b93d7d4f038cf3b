package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// UUID returns a random UUID v4 string. Socket sessions are keyed by it.
func UUID() string {
	return uuid.NewString()
}

// Short returns 16 hex characters taken from a random UUID. It tags the log
// lines of one HTTP request.
func Short() string {
	u := uuid.New()
	return hex.EncodeToString(u[:8])
}
