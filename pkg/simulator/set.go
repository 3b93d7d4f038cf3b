package simulator

import "context"

// Set groups the registries of one simulator process. Nil members are
// skipped.
type Set struct {
	REST   Registry
	WS     Registry
	Socket Registry
}

func (s Set) all() []Registry {
	out := make([]Registry, 0, 3)
	for _, r := range []Registry{s.REST, s.WS, s.Socket} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Remove deletes testID from every registry.
func (s Set) Remove(testID string) int {
	n := 0
	for _, r := range s.all() {
		n += r.Remove(testID)
	}
	return n
}

// Clear empties every registry and returns the total number of records
// removed.
func (s Set) Clear() int {
	n := 0
	for _, r := range s.all() {
		n += r.Clear()
	}
	return n
}

// Replace removes any record registered under the request's test id from
// every registry, then sets the request up on target.
func (s Set) Replace(ctx context.Context, target Registry, req *Request) (string, error) {
	if id, ok := req.Param(ParamTestID); ok && id != "" {
		s.Remove(id)
	}
	return target.Setup(ctx, req)
}
