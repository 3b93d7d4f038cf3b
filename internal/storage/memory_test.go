package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	id    string
	value string
	calls int
}

func (r *rec) TestID() string { return r.id }

func fill(ids ...string) *Ordered[*rec] {
	s := NewOrdered[*rec]()
	for _, id := range ids {
		s.Append(&rec{id: id, value: "v"})
	}
	return s
}

func TestOrdered_MatchAndPromote(t *testing.T) {
	s := fill("a", "b", "c")

	r, ok := s.MatchAndPromote(func(r *rec) bool { return r.value == "v" }, func(r *rec) { r.calls++ })
	require.True(t, ok)
	assert.Equal(t, "a", r.id)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []string{"b", "c", "a"}, s.IDs())

	r, ok = s.MatchAndPromote(func(r *rec) bool { return r.value == "v" }, nil)
	require.True(t, ok)
	assert.Equal(t, "b", r.id, "least recently matched record wins the tie")
	assert.Equal(t, []string{"c", "a", "b"}, s.IDs())

	_, ok = s.MatchAndPromote(func(*rec) bool { return false }, nil)
	assert.False(t, ok)
}

func TestOrdered_MatchKeepsOrder(t *testing.T) {
	s := fill("a", "b")
	r, ok := s.Match(func(r *rec) bool { return r.id == "a" }, func(r *rec) { r.calls++ })
	require.True(t, ok)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []string{"a", "b"}, s.IDs())
}

func TestOrdered_ReplaceRemoveClear(t *testing.T) {
	s := fill("a", "b", "a")

	s.Replace(&rec{id: "a", value: "new"})
	assert.Equal(t, []string{"b", "a"}, s.IDs())

	var seen string
	require.True(t, s.View("a", func(r *rec) { seen = r.value }))
	assert.Equal(t, "new", seen)
	assert.False(t, s.View("missing", func(*rec) {}))

	assert.Equal(t, 1, s.Remove("b"))
	assert.Equal(t, 0, s.Remove("b"))
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, 1, s.Clear())
	assert.Equal(t, 0, s.Len())
}

func TestOrdered_ConcurrentMatchCountsOncePerCall(t *testing.T) {
	s := fill("a")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.MatchAndPromote(func(*rec) bool { return true }, func(r *rec) { r.calls++ })
		}()
	}
	wg.Wait()

	var calls int
	s.View("a", func(r *rec) { calls = r.calls })
	assert.Equal(t, 50, calls)
}
