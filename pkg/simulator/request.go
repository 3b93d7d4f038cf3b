package simulator

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/getmockd/simulator/pkg/xmlutil"
)

// Setup parameter names.
const (
	ParamTestID                 = "testId"
	ParamPath                   = "path"
	ParamQueryString            = "queryString"
	ParamRequest                = "request"
	ParamResponse               = "response"
	ParamResponseHeaders        = "responseHeaders"
	ParamDelay                  = "delay"
	ParamRequestBackReferences  = "requestBackReferences"
	ParamResponseBackReferences = "responseBackReferences"
	ParamScanBackReferences     = "scanBackReferences"
	ParamMaxCallCount           = "maxCallCount"
	ParamCloseAfterResponse     = "closeAfterResponse"
)

// Request is the protocol-neutral shape of an inbound call.
type Request struct {
	// Path is the request path without the query string.
	Path string
	// QueryString is the raw query string; empty when the request had none.
	QueryString string
	// Parameters holds the decoded query and form parameters.
	Parameters url.Values
	// Body is the raw request body. May be nil.
	Body io.Reader
	// Charset is the declared request charset; empty when not declared.
	Charset string
}

// NewRequest creates a request carrying only parameters, as used by setup
// calls and fixtures.
func NewRequest(params url.Values) *Request {
	if params == nil {
		params = url.Values{}
	}
	return &Request{Parameters: params}
}

// Param returns the first value of name and whether it was present.
func (r *Request) Param(name string) (string, bool) {
	vs, ok := r.Parameters[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns every value of name.
func (r *Request) Values(name string) []string {
	return r.Parameters[name]
}

// Bool reports whether name is "true", ignoring case.
func (r *Request) Bool(name string) bool {
	v, _ := r.Param(name)
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// Int parses name as a non-negative integer. ok is false when the parameter
// is absent or blank.
func (r *Request) Int(name string) (n int, ok bool, err error) {
	v, present := r.Param(name)
	v = strings.TrimSpace(v)
	if !present || v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, name, v)
	}
	return n, true, nil
}

// Headers parses the responseHeaders parameter. Each value is "name=value",
// split at the first '='; entries without a name are skipped.
func (r *Request) Headers() map[string]string {
	headers := make(map[string]string)
	for _, h := range r.Values(ParamResponseHeaders) {
		if i := strings.IndexByte(h, '='); i > 0 {
			headers[h[:i]] = h[i+1:]
		}
	}
	return headers
}

// ReadBody returns the body as a string, decoded from the request charset.
func (r *Request) ReadBody() (string, error) {
	if r.Body == nil {
		return "", nil
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return xmlutil.DecodeString(b, r.Charset)
}
