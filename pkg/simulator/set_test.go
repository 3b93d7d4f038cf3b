package simulator

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry records ids and counts removals.
type fakeRegistry struct {
	ids []string
}

func (f *fakeRegistry) Setup(_ context.Context, req *Request) (string, error) {
	if err := req.Require(ParamTestID); err != nil {
		return "", err
	}
	id, _ := req.Param(ParamTestID)
	f.ids = append(f.ids, id)
	return id, nil
}

func (f *fakeRegistry) Verify(testID string) (int, bool) {
	for _, id := range f.ids {
		if id == testID {
			return 0, true
		}
	}
	return 0, false
}

func (f *fakeRegistry) Clear() int {
	n := len(f.ids)
	f.ids = nil
	return n
}

func (f *fakeRegistry) Remove(testID string) int {
	kept := f.ids[:0]
	for _, id := range f.ids {
		if id != testID {
			kept = append(kept, id)
		}
	}
	n := len(f.ids) - len(kept)
	f.ids = kept
	return n
}

func TestSet_ReplaceAcrossRegistries(t *testing.T) {
	rest, ws := &fakeRegistry{}, &fakeRegistry{}
	set := Set{REST: rest, WS: ws}
	ctx := context.Background()

	_, err := set.Replace(ctx, rest, NewRequest(url.Values{"testId": {"a"}}))
	require.NoError(t, err)
	_, err = set.Replace(ctx, ws, NewRequest(url.Values{"testId": {"a"}}))
	require.NoError(t, err)

	assert.Empty(t, rest.ids, "the REST record is replaced by the WS one")
	assert.Equal(t, []string{"a"}, ws.ids)
}

func TestSet_ClearAndRemove(t *testing.T) {
	rest, ws, sock := &fakeRegistry{}, &fakeRegistry{}, &fakeRegistry{}
	rest.ids = []string{"a", "b"}
	ws.ids = []string{"a"}
	sock.ids = []string{"c"}
	set := Set{REST: rest, WS: ws, Socket: sock}

	assert.Equal(t, 2, set.Remove("a"))
	assert.Equal(t, 2, set.Clear())
	assert.Equal(t, 0, Set{}.Clear(), "nil members are skipped")
}

func TestSet_ReplaceReportsSetupError(t *testing.T) {
	rest := &fakeRegistry{}
	_, err := Set{REST: rest}.Replace(context.Background(), rest, NewRequest(nil))
	assert.ErrorIs(t, err, ErrMissingParameter)
}
