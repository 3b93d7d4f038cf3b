// Package ws simulates XML document services such as SOAP endpoints.
//
// A request matches a record when the XML comparator accepts it against the
// record's control document. Values captured for placeholders in the control
// document are spliced into a copy of the record's response document.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/etree"

	"github.com/getmockd/simulator/internal/storage"
	"github.com/getmockd/simulator/pkg/backref"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/simulator"
	"github.com/getmockd/simulator/pkg/xmlcompare"
	"github.com/getmockd/simulator/pkg/xmlpath"
	"github.com/getmockd/simulator/pkg/xmlutil"
)

// TestData is a registered WS test record.
type TestData struct {
	id       string
	request  *etree.Document
	response *etree.Document
	// captures locate placeholders in the control document.
	captures     []backref.Location
	inNamespaces map[string]string
	// placeholders locate substitution points in the response document.
	placeholders  []backref.Location
	outNamespaces map[string]string
	headers       map[string]string
	delay         time.Duration
	calls         int
}

// TestID implements storage.Record.
func (td *TestData) TestID() string { return td.id }

// Simulator is the WS registry. It is safe for concurrent use.
type Simulator struct {
	store      *storage.Ordered[*TestData]
	comparator *xmlcompare.Comparator
	log        *slog.Logger
}

var (
	_ simulator.Registry = (*Simulator)(nil)
	_ simulator.Executor = (*Simulator)(nil)
)

// New creates an empty WS simulator.
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
	if err := req.Require(simulator.ParamTestID, simulator.ParamRequest, simulator.ParamResponse); err != nil {
		return "", err
	}
	id, _ := req.Param(simulator.ParamTestID)

	inDeclared := req.Values(simulator.ParamRequestBackReferences)
	outDeclared := req.Values(simulator.ParamResponseBackReferences)
	if req.Bool(simulator.ParamScanBackReferences) && (len(inDeclared) > 0 || len(outDeclared) > 0) {
		return "", simulator.ErrAmbiguousBackReferences
	}

	td := &TestData{id: id, headers: req.Headers()}

	var err error
	if td.request, err = parseTemplate(req, simulator.ParamRequest); err != nil {
		return "", err
	}
	if td.response, err = parseTemplate(req, simulator.ParamResponse); err != nil {
		return "", err
	}
	if td.captures, td.inNamespaces, err = locate(td.request, inDeclared); err != nil {
		return "", err
	}
	if td.placeholders, td.outNamespaces, err = locate(td.response, outDeclared); err != nil {
		return "", err
	}

	delay, _, err := req.Int(simulator.ParamDelay)
	if err != nil {
		return "", err
	}
	td.delay = time.Duration(delay) * time.Millisecond

	s.store.Append(td)
	s.log.Debug("testdata added", "testId", id,
		"captures", len(td.captures), "placeholders", len(td.placeholders))
	return id, nil
}

func parseTemplate(req *simulator.Request, name string) (*etree.Document, error) {
	raw, _ := req.Param(name)
	doc, err := xmlutil.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", simulator.ErrMalformedTemplate, name, err)
	}
	return doc, nil
}

// locate evaluates declared addresses, or scans the document when none were
// declared. Declared addresses resolve prefixes from the document itself.
func locate(doc *etree.Document, declared []string) ([]backref.Location, map[string]string, error) {
	if len(declared) == 0 {
		locs, ns := backref.ScanDocument(doc)
		return locs, ns, nil
	}
	locs, err := backref.Locate(doc, declared, xmlpath.NewDocumentResolver(doc))
	return locs, nil, err
}

// Execute parses the request body and answers with the response of the first
// record whose control document accepts it.
func (s *Simulator) Execute(ctx context.Context, req *simulator.Request) (*simulator.Response, error) {
	if req.Body == nil {
		return nil, fmt.Errorf("%w: empty body", simulator.ErrMalformedRequest)
	}
	doc, err := xmlutil.ParseReader(req.Body, req.Charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", simulator.ErrMalformedRequest, err)
	}

	var captured []backref.Value
	td, ok := s.store.MatchAndPromote(func(td *TestData) bool {
		values, ok := s.comparator.Match(td.request, doc)
		if ok {
			captured = values
		}
		return ok
	}, func(td *TestData) {
		td.calls++
	})
	if !ok {
		s.log.Debug("no matching testdata", "root", doc.Root().FullTag())
		return nil, simulator.ErrNoMatch
	}
	s.log.Info("matched testdata", "testId", td.id)

	extra, err := backref.Capture(doc, td.captures, xmlpath.For(td.inNamespaces, td.request))
	if err != nil {
		return nil, err
	}
	values := backref.Merge(captured, extra)

	if err := simulator.Sleep(ctx, td.delay); err != nil {
		return nil, err
	}

	var r xmlpath.Resolver
	if td.outNamespaces != nil {
		r = xmlpath.MapResolver(td.outNamespaces)
	}
	out, err := backref.Render(td.response, td.placeholders, values, r)
	if err != nil {
		return nil, err
	}
	return &simulator.Response{
		Headers: simulator.CopyHeaders(td.headers),
		Body:    simulator.XMLBody{Doc: out},
	}, nil
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
