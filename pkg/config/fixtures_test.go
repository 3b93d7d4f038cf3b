package config

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/simulator/pkg/rest"
	"github.com/getmockd/simulator/pkg/simulator"
	"github.com/getmockd/simulator/pkg/socket"
	"github.com/getmockd/simulator/pkg/ws"
	"github.com/getmockd/simulator/pkg/xmlutil"
)

const sampleFixture = `
rest:
  - testId: greeting
    path: /hello
    queryString: name=*(NAME)*
    response: Hello *(NAME)*
    responseHeaders:
      X-Greeting: "yes"
ws:
  - testId: order
    request: <order><id>*(ID)*</id></order>
    response: <receipt><id>*(ID)*</id></receipt>
    scanBackReferences: true
    delay: 0
socket:
  - testId: ping
    request: PING
    response: PONG\n
    maxCallCount: 2
    closeAfterResponse: true
`

func TestParseFixture(t *testing.T) {
	f, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)

	require.Len(t, f.REST, 1)
	require.Len(t, f.WS, 1)
	require.Len(t, f.Socket, 1)
	assert.Equal(t, 3, f.Len())

	assert.Equal(t, "greeting", f.REST[0].TestID)
	assert.Equal(t, map[string]string{"X-Greeting": "yes"}, f.REST[0].ResponseHeaders)
	assert.True(t, f.WS[0].ScanBackReferences)
	require.NotNil(t, f.Socket[0].MaxCallCount)
	assert.Equal(t, 2, *f.Socket[0].MaxCallCount)
	assert.Equal(t, `PONG\n`, f.Socket[0].Response)
}

func TestParseFixture_SchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown section", "soap: []\n", "/"},
		{"missing test id", "rest:\n  - path: /x\n", "/rest/0"},
		{"ws without request", "ws:\n  - testId: a\n    response: <a/>\n", "/ws/0"},
		{"socket field on rest", "rest:\n  - testId: a\n    maxCallCount: 1\n", "/rest/0"},
		{"negative delay", "rest:\n  - testId: a\n    delay: -1\n", "/rest/0/delay"},
		{"declared and scanned", "ws:\n  - testId: a\n    request: <a/>\n    response: <b/>\n    scanBackReferences: true\n    requestBackReferences: [\"/a[1]\"]\n", "/ws/0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixture([]byte(tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidFixture), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateFixtureValue_DecodedYAMLTypes(t *testing.T) {
	valid := map[string]any{
		"socket": []any{map[string]any{
			"testId":             "ping",
			"request":            "PING",
			"response":           "PONG",
			"maxCallCount":       2,
			"closeAfterResponse": true,
		}},
		"rest": []any{map[string]any{"testId": "slow", "delay": uint64(150)}},
	}
	require.NoError(t, validateFixtureValue(valid))

	invalid := map[string]any{
		"rest": []any{map[string]any{"testId": "slow", "delay": "150"}},
	}
	err := validateFixtureValue(invalid)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFixture)
	assert.Contains(t, err.Error(), "/rest/0/delay")
}

func TestParseFixture_Empty(t *testing.T) {
	_, err := ParseFixture([]byte("  \n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseFixture([]byte("# only a comment\n"))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseFixture([]byte("rest: [\n"))
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestEntryParams(t *testing.T) {
	limit := 0
	e := Entry{
		TestID:                 "t",
		Request:                "<a/>",
		Response:               "<b/>",
		ResponseHeaders:        map[string]string{"B": "2", "A": "1"},
		RequestBackReferences:  []string{"/a[1]"},
		ResponseBackReferences: []string{"/b[1]"},
		Delay:                  150,
		MaxCallCount:           &limit,
		CloseAfterResponse:     true,
	}

	assert.Equal(t, url.Values{
		"testId":                 {"t"},
		"request":                {"<a/>"},
		"response":               {"<b/>"},
		"responseHeaders":        {"A=1", "B=2"},
		"requestBackReferences":  {"/a[1]"},
		"responseBackReferences": {"/b[1]"},
		"delay":                  {"150"},
		"maxCallCount":           {"0"},
		"closeAfterResponse":     {"true"},
	}, e.Params())

	assert.Equal(t, url.Values{"testId": {"only"}}, Entry{TestID: "only"}.Params())
}

func TestLoadFixtures_Glob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fixtures/a.yaml", "socket:\n  - testId: a\n    request: A\n    response: \"1\"\n")
	writeFile(t, dir, "fixtures/nested/deep/b.yaml", "socket:\n  - testId: b\n    request: B\n    response: \"2\"\n")
	writeFile(t, dir, "fixtures/ignored.txt", "not yaml")

	fixtures, err := LoadFixtures([]string{"fixtures/**/*.yaml", "fixtures/a.yaml", "missing/*.yaml"}, dir)
	require.NoError(t, err)
	require.Len(t, fixtures, 2, "a file matched twice is loaded once")

	sources := []string{fixtures[0].Source, fixtures[1].Source}
	assert.Contains(t, sources, filepath.Join(dir, "fixtures", "a.yaml"))
	assert.Contains(t, sources, filepath.Join(dir, "fixtures", "nested", "deep", "b.yaml"))
}

func TestLoadFixtures_ReportsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "rest:\n  - path: /x\n")

	_, err := LoadFixtures([]string{"*.yaml"}, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidFixture)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestConfigLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fx/one.yaml", sampleFixture)
	path := writeFile(t, dir, "simulator.yaml", "fixtures:\n  - fx/*.yaml\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	fixtures, err := cfg.LoadFixtures()
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	assert.Equal(t, 3, fixtures[0].Len())
}

func TestApply(t *testing.T) {
	restSim, wsSim, socketSim := rest.New(), ws.New(), socket.New()
	set := simulator.Set{REST: restSim, WS: wsSim, Socket: socketSim}

	f, err := ParseFixture([]byte(sampleFixture))
	require.NoError(t, err)
	f.Source = "sample.yaml"

	n, err := Apply(context.Background(), set, []*Fixture{f}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	resp, err := restSim.Execute(context.Background(), &simulator.Request{Path: "/hello", QueryString: "name=World"})
	require.NoError(t, err)
	assert.Equal(t, simulator.TextBody{Text: "Hello World"}, resp.Body)
	assert.Equal(t, "yes", resp.Headers["X-Greeting"])

	resp, err = wsSim.Execute(context.Background(), &simulator.Request{Body: strings.NewReader("<order><id>42</id></order>")})
	require.NoError(t, err)
	body, ok := resp.Body.(simulator.XMLBody)
	require.True(t, ok)
	out, err := xmlutil.String(body.Doc)
	require.NoError(t, err)
	assert.Equal(t, "<receipt><id>42</id></receipt>", out)

	reply, ok := socketSim.Match("PING")
	require.True(t, ok)
	assert.Equal(t, "PONG\n", reply.Response)
	assert.True(t, reply.CloseAfterResponse)

	// Applying again replaces rather than duplicates.
	n, err = Apply(context.Background(), set, []*Fixture{f}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, restSim.Len())
	assert.Equal(t, 1, wsSim.Len())
	assert.Equal(t, 1, socketSim.Len())
}

func TestApply_StopsAtFirstFailure(t *testing.T) {
	wsSim := ws.New()
	f := &Fixture{
		Source: "broken.yaml",
		WS: []Entry{
			{TestID: "ok", Request: "<a/>", Response: "<b/>"},
			{TestID: "bad", Request: "<a>", Response: "<b/>"},
			{TestID: "never", Request: "<a/>", Response: "<b/>"},
		},
	}

	n, err := Apply(context.Background(), simulator.Set{WS: wsSim}, []*Fixture{f}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, simulator.ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "broken.yaml: ws[1] (testId=bad)")
	assert.Equal(t, 1, wsSim.Len())
}

func TestApply_MissingRegistry(t *testing.T) {
	f := &Fixture{Source: "x.yaml", Socket: []Entry{{TestID: "s", Request: "A", Response: "B"}}}
	_, err := Apply(context.Background(), simulator.Set{}, []*Fixture{f}, nil)
	assert.ErrorContains(t, err, "no socket registry")
}
