package simulator

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequire(t *testing.T) {
	req := NewRequest(url.Values{"testId": {"t1"}, "request": {""}})

	require.NoError(t, req.Require("testId"))

	err := req.Require("testId", "request", "response")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))

	var mp *MissingParameterError
	require.True(t, errors.As(err, &mp))
	assert.Equal(t, []string{"request", "response"}, mp.Names)
	assert.Equal(t, "missing parameter: request, response", err.Error())
}

func TestParamHelpers(t *testing.T) {
	req := NewRequest(url.Values{
		"delay":              {"150"},
		"bad":                {"x"},
		"neg":                {"-1"},
		"closeAfterResponse": {"TRUE"},
		"responseHeaders":    {"gnurf=apa", "x=a=b", "=skipped", "novalue"},
	})

	n, ok, err := req.Int("delay")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 150, n)

	_, ok, err = req.Int("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = req.Int("bad")
	assert.True(t, errors.Is(err, ErrInvalidParameter))
	_, _, err = req.Int("neg")
	assert.True(t, errors.Is(err, ErrInvalidParameter))

	assert.True(t, req.Bool("closeAfterResponse"))
	assert.False(t, req.Bool("missing"))

	assert.Equal(t, map[string]string{"gnurf": "apa", "x": "a=b"}, req.Headers())
}

func TestNewRequest_NilParams(t *testing.T) {
	req := NewRequest(nil)
	_, ok := req.Param("x")
	assert.False(t, ok)
	assert.Nil(t, req.Values("x"))
}

func TestReadBody(t *testing.T) {
	req := &Request{Body: strings.NewReader("R\xe4ka"), Charset: "ISO-8859-1"}
	s, err := req.ReadBody()
	require.NoError(t, err)
	assert.Equal(t, "Räka", s)

	s, err = (&Request{}).ReadBody()
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))

	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestCopyHeaders(t *testing.T) {
	src := map[string]string{"a": "1"}
	dst := CopyHeaders(src)
	dst["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
