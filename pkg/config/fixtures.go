package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/simulator"
)

// ErrInvalidFixture is returned for fixture files that do not match the
// fixture schema.
var ErrInvalidFixture = errors.New("invalid fixture")

// Entry is one test record in a fixture file. Its fields mirror the setup
// parameters; fields a protocol does not use are rejected by the schema.
type Entry struct {
	TestID                 string            `json:"testId" yaml:"testId"`
	Path                   string            `json:"path,omitempty" yaml:"path,omitempty"`
	QueryString            string            `json:"queryString,omitempty" yaml:"queryString,omitempty"`
	Request                string            `json:"request,omitempty" yaml:"request,omitempty"`
	Response               string            `json:"response,omitempty" yaml:"response,omitempty"`
	ResponseHeaders        map[string]string `json:"responseHeaders,omitempty" yaml:"responseHeaders,omitempty"`
	RequestBackReferences  []string          `json:"requestBackReferences,omitempty" yaml:"requestBackReferences,omitempty"`
	ResponseBackReferences []string          `json:"responseBackReferences,omitempty" yaml:"responseBackReferences,omitempty"`
	ScanBackReferences     bool              `json:"scanBackReferences,omitempty" yaml:"scanBackReferences,omitempty"`
	// Delay is in milliseconds.
	Delay              int  `json:"delay,omitempty" yaml:"delay,omitempty"`
	MaxCallCount       *int `json:"maxCallCount,omitempty" yaml:"maxCallCount,omitempty"`
	CloseAfterResponse bool `json:"closeAfterResponse,omitempty" yaml:"closeAfterResponse,omitempty"`
}

// Params returns the setup parameters equivalent to e.
func (e Entry) Params() url.Values {
	v := url.Values{}
	set := func(name, value string) {
		if value != "" {
			v.Set(name, value)
		}
	}
	set(simulator.ParamTestID, e.TestID)
	set(simulator.ParamPath, e.Path)
	set(simulator.ParamQueryString, e.QueryString)
	set(simulator.ParamRequest, e.Request)
	set(simulator.ParamResponse, e.Response)

	names := make([]string, 0, len(e.ResponseHeaders))
	for name := range e.ResponseHeaders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v.Add(simulator.ParamResponseHeaders, name+"="+e.ResponseHeaders[name])
	}

	if len(e.RequestBackReferences) > 0 {
		v[simulator.ParamRequestBackReferences] = slices.Clone(e.RequestBackReferences)
	}
	if len(e.ResponseBackReferences) > 0 {
		v[simulator.ParamResponseBackReferences] = slices.Clone(e.ResponseBackReferences)
	}
	if e.ScanBackReferences {
		v.Set(simulator.ParamScanBackReferences, "true")
	}
	if e.Delay > 0 {
		v.Set(simulator.ParamDelay, strconv.Itoa(e.Delay))
	}
	if e.MaxCallCount != nil {
		v.Set(simulator.ParamMaxCallCount, strconv.Itoa(*e.MaxCallCount))
	}
	if e.CloseAfterResponse {
		v.Set(simulator.ParamCloseAfterResponse, "true")
	}
	return v
}

// Fixture is the content of one fixture file.
type Fixture struct {
	// Source is the file the fixture was read from.
	Source string  `json:"-" yaml:"-"`
	REST   []Entry `json:"rest,omitempty" yaml:"rest,omitempty"`
	WS     []Entry `json:"ws,omitempty" yaml:"ws,omitempty"`
	Socket []Entry `json:"socket,omitempty" yaml:"socket,omitempty"`
}

// Len returns the number of entries in f.
func (f *Fixture) Len() int {
	return len(f.REST) + len(f.WS) + len(f.Socket)
}

// ParseFixture validates data against the fixture schema and decodes it.
func ParseFixture(data []byte) (*Fixture, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if raw == nil {
		return nil, ErrEmptyFile
	}
	if err := validateFixtureValue(raw); err != nil {
		return nil, err
	}

	f := &Fixture{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return f, nil
}

// LoadFixture reads and parses one fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Source = path
	return f, nil
}

// LoadFixtures loads every file matched by patterns, resolved against
// baseDir. Patterns support ** for recursive matching. Files matched by
// more than one pattern are loaded once; a pattern matching nothing is not
// an error.
func LoadFixtures(patterns []string, baseDir string) ([]*Fixture, error) {
	seen := make(map[string]bool)
	var fixtures []*Fixture
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(ResolvePath(baseDir, pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil {
				abs = match
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true

			f, err := LoadFixture(match)
			if err != nil {
				return nil, err
			}
			fixtures = append(fixtures, f)
		}
	}
	return fixtures, nil
}

// LoadFixtures loads the fixture files named by the configuration.
func (c *Config) LoadFixtures() ([]*Fixture, error) {
	return LoadFixtures(c.Fixtures, c.BaseDir())
}

// Apply sets every entry up on the matching registry of set, replacing any
// record already registered under the same test id. It stops at the first
// entry that fails and returns the number of entries applied.
func Apply(ctx context.Context, set simulator.Set, fixtures []*Fixture, log *slog.Logger) (int, error) {
	if log == nil {
		log = logging.Nop()
	}
	n := 0
	for _, f := range fixtures {
		groups := []struct {
			name    string
			target  simulator.Registry
			entries []Entry
		}{
			{"rest", set.REST, f.REST},
			{"ws", set.WS, f.WS},
			{"socket", set.Socket, f.Socket},
		}
		for _, g := range groups {
			if len(g.entries) == 0 {
				continue
			}
			if g.target == nil {
				return n, fmt.Errorf("%s: no %s registry to load %d entries into", f.Source, g.name, len(g.entries))
			}
			for i, e := range g.entries {
				if _, err := set.Replace(ctx, g.target, simulator.NewRequest(e.Params())); err != nil {
					return n, fmt.Errorf("%s: %s[%d] (testId=%s): %w", f.Source, g.name, i, e.TestID, err)
				}
				n++
			}
		}
		log.Debug("fixture applied", "source", f.Source, "entries", f.Len())
	}
	return n, nil
}
