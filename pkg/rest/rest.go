package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getmockd/simulator/internal/storage"
	"github.com/getmockd/simulator/pkg/backref"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/simulator"
	"github.com/getmockd/simulator/pkg/xmlcompare"
	"github.com/getmockd/simulator/pkg/xmlpath"
	"github.com/getmockd/simulator/pkg/xmlutil"
)

// TestData is a registered REST test record.
type TestData struct {
	id       string
	path     string
	query    map[string]string
	template simulator.Body
	// captures maps placeholders to the query parameter they are read from.
	captures []backref.Location
	// placeholders locate the substitution points in an XML template.
	placeholders []backref.Location
	// namespaces is nil when placeholders were declared explicitly.
	namespaces map[string]string
	headers    map[string]string
	delay      time.Duration
	calls      int
}

// TestID implements storage.Record.
func (td *TestData) TestID() string { return td.id }

// Simulator is the REST registry. It is safe for concurrent use.
type Simulator struct {
	store      *storage.Ordered[*TestData]
	comparator *xmlcompare.Comparator
	log        *slog.Logger
}

var (
	_ simulator.Registry = (*Simulator)(nil)
	_ simulator.Executor = (*Simulator)(nil)
)

// New creates an empty REST simulator.
func New() *Simulator {
	return &Simulator{
		store:      storage.NewOrdered[*TestData](),
		comparator: xmlcompare.New(),
		log:        logging.Nop(),
	}
}

// SetLogger sets the operational logger for the simulator.
func (s *Simulator) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	s.log = log
	s.comparator.SetLogger(log)
}

// Setup registers a test record from the request parameters.
func (s *Simulator) Setup(_ context.Context, req *simulator.Request) (string, error) {
	if err := req.Require(simulator.ParamTestID); err != nil {
		return "", err
	}
	id, _ := req.Param(simulator.ParamTestID)

	td := &TestData{
		id:      id,
		path:    param(req, simulator.ParamPath),
		query:   setupQuery(req),
		headers: req.Headers(),
	}
	td.captures = backref.ScanParams(td.query)

	delay, _, err := req.Int(simulator.ParamDelay)
	if err != nil {
		return "", err
	}
	td.delay = time.Duration(delay) * time.Millisecond

	if err := s.setupResponse(td, req); err != nil {
		return "", err
	}

	s.store.Append(td)
	s.log.Debug("testdata added", "testId", id, "path", td.path, "params", len(td.query), "captures", len(td.captures))
	return id, nil
}

func param(req *simulator.Request, name string) string {
	v, _ := req.Param(name)
	return strings.TrimSpace(v)
}

// setupQuery reads the stored query parameters. When the explicit field
// yields nothing, the field is looked up again in the flattened parameter
// set, which covers transports that split it up.
func setupQuery(req *simulator.Request) map[string]string {
	query := ParseQueryString(param(req, simulator.ParamQueryString))
	if len(query) > 0 {
		return query
	}
	all := FromParameters(req.Parameters)
	return ParseQueryString(strings.TrimSpace(all[simulator.ParamQueryString]))
}

func (s *Simulator) setupResponse(td *TestData, req *simulator.Request) error {
	raw, _ := req.Param(simulator.ParamResponse)
	declared := req.Values(simulator.ParamResponseBackReferences)
	if len(declared) > 0 && req.Bool(simulator.ParamScanBackReferences) {
		return simulator.ErrAmbiguousBackReferences
	}

	if !xmlutil.LooksLikeXML(raw) {
		td.template = simulator.TextBody{Text: raw}
		return nil
	}
	doc, err := xmlutil.Parse(raw)
	if err != nil {
		s.log.Warn("response is not well-formed xml, using it as text",
			"testId", td.id, "error", fmt.Errorf("%w: %w", simulator.ErrMalformedTemplate, err))
		td.template = simulator.TextBody{Text: raw}
		return nil
	}
	td.template = simulator.XMLBody{Doc: doc}

	if len(declared) > 0 {
		td.placeholders, err = backref.Locate(doc, declared, xmlpath.NewDocumentResolver(doc))
		return err
	}
	td.placeholders, td.namespaces = backref.ScanDocument(doc)
	return nil
}

// Execute matches the request against the registry and renders the response
// of the first acceptable record.
func (s *Simulator) Execute(ctx context.Context, req *simulator.Request) (*simulator.Response, error) {
	query, err := requestQuery(req)
	if err != nil {
		return nil, err
	}
	path := strings.TrimSpace(req.Path)

	var captured []backref.Value
	td, ok := s.store.MatchAndPromote(func(td *TestData) bool {
		values, ok := s.accept(td, path, query)
		if ok {
			captured = values
		}
		return ok
	}, func(td *TestData) {
		td.calls++
	})
	if !ok {
		s.log.Debug("no matching testdata", "path", path, "params", len(query))
		return nil, simulator.ErrNoMatch
	}
	s.log.Info("matched testdata", "testId", td.id, "path", path)

	if err := simulator.Sleep(ctx, td.delay); err != nil {
		return nil, err
	}
	return td.render(captured)
}

// requestQuery prefers the raw query string, then a body carrying one, then
// the decoded parameter map.
func requestQuery(req *simulator.Request) (map[string]string, error) {
	qs := req.QueryString
	if qs == "" {
		body, err := req.ReadBody()
		if err != nil {
			return nil, err
		}
		qs = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	}
	query := ParseQueryString(qs)
	if len(query) == 0 {
		query = FromParameters(req.Parameters)
	}
	return query, nil
}

// accept runs under the registry lock.
func (s *Simulator) accept(td *TestData, path string, query map[string]string) ([]backref.Value, bool) {
	if td.path != "" && !strings.HasSuffix(path, td.path) {
		return nil, false
	}
	if len(td.query) != len(query) {
		return nil, false
	}

	var values []backref.Value
	for key, actual := range query {
		stored, ok := td.query[key]
		if !ok {
			return nil, false
		}
		if stored == actual {
			continue
		}
		if captured, isXML, ok := s.compareXML(stored, actual); isXML {
			if !ok {
				return nil, false
			}
			values = append(values, captured...)
			continue
		}
		if !backref.Contains(stored) {
			return nil, false
		}
	}

	for _, loc := range td.captures {
		if v, ok := query[loc.Address]; ok {
			values = backref.Merge(values, []backref.Value{{ID: loc.ID, Value: v}})
		}
	}
	return values, true
}

// compareXML compares two parameter values as XML documents. isXML is false
// when either value does not parse, in which case the caller falls back to
// literal rules.
func (s *Simulator) compareXML(stored, actual string) (values []backref.Value, isXML, ok bool) {
	if !xmlutil.LooksLikeXML(stored) || !xmlutil.LooksLikeXML(actual) {
		return nil, false, false
	}
	control, err := xmlutil.Parse(stored)
	if err != nil {
		s.log.Debug("stored parameter is not xml", "error", err)
		return nil, false, false
	}
	doc, err := xmlutil.Parse(actual)
	if err != nil {
		s.log.Debug("request parameter is not xml", "error", err)
		return nil, false, false
	}
	values, ok = s.comparator.Match(control, doc)
	return values, true, ok
}

func (td *TestData) render(values []backref.Value) (*simulator.Response, error) {
	resp := &simulator.Response{Headers: simulator.CopyHeaders(td.headers)}
	switch t := td.template.(type) {
	case simulator.XMLBody:
		var r xmlpath.Resolver
		if td.namespaces != nil {
			r = xmlpath.MapResolver(td.namespaces)
		}
		doc, err := backref.Render(t.Doc, td.placeholders, values, r)
		if err != nil {
			return nil, err
		}
		resp.Body = simulator.XMLBody{Doc: doc}
	case simulator.TextBody:
		resp.Body = simulator.TextBody{Text: backref.ReplaceText(t.Text, values)}
	default:
		return nil, errors.New("rest: record has no response template")
	}
	return resp, nil
}

// Verify returns the call count of the first record registered as testID.
func (s *Simulator) Verify(testID string) (int, bool) {
	var calls int
	ok := s.store.View(testID, func(td *TestData) { calls = td.calls })
	return calls, ok
}

// Clear removes all records.
func (s *Simulator) Clear() int {
	n := s.store.Clear()
	s.log.Debug("testdata cleared", "removed", n)
	return n
}

// Remove deletes every record registered as testID.
func (s *Simulator) Remove(testID string) int {
	return s.store.Remove(testID)
}

// Len returns the number of registered records.
func (s *Simulator) Len() int {
	return s.store.Len()
}
