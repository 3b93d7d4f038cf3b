package simulator

import (
	"errors"
	"strings"
)

var (
	// ErrNoMatch is returned by Execute when no registered record accepts
	// the request.
	ErrNoMatch = errors.New("failed to find matching testdata for the request")

	// ErrMissingParameter is matched by every *MissingParameterError.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrMalformedTemplate is returned when a stored XML template does not
	// parse. REST text responses degrade to text instead.
	ErrMalformedTemplate = errors.New("malformed template")

	// ErrMalformedRequest is returned when an execute body cannot be parsed.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrAmbiguousBackReferences is returned when a setup both declares
	// back-reference addresses and asks for scanning.
	ErrAmbiguousBackReferences = errors.New("back references are both declared and scanned")

	// ErrInvalidParameter is returned for parameters with unparsable values.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// MissingParameterError lists the required setup parameters that were absent.
type MissingParameterError struct {
	Names []string
}

func (e *MissingParameterError) Error() string {
	return "missing parameter: " + strings.Join(e.Names, ", ")
}

// Is makes errors.Is(err, ErrMissingParameter) hold.
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// Require returns a *MissingParameterError naming every absent parameter,
// or nil when all are present and non-empty.
func (r *Request) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if v, ok := r.Param(n); !ok || v == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingParameterError{Names: missing}
	}
	return nil
}
