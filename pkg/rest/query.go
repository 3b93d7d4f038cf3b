package rest

import (
	"net/url"
	"strings"
)

// ParseQueryString splits qs on '&' and each pair on its first '='. Pairs
// without a key or without a value are skipped. Values are URL-decoded unless
// they start with '<', so XML values keep their markup.
func ParseQueryString(qs string) map[string]string {
	params := make(map[string]string)
	if qs == "" {
		return params
	}
	for _, pair := range strings.Split(qs, "&") {
		i := strings.IndexByte(pair, '=')
		if i <= 0 || i+1 >= len(pair) {
			continue
		}
		params[pair[:i]] = decodeValue(pair[i+1:])
	}
	return params
}

// FromParameters flattens a decoded parameter map to its first values. It
// serves transports that never expose the raw query string.
func FromParameters(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		params[decode(k)] = decodeValue(vs[0])
	}
	return params
}

func decodeValue(v string) string {
	if v == "" || strings.HasPrefix(v, "<") {
		return v
	}
	return decode(v)
}

func decode(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}
