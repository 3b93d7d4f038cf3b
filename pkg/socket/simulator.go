package socket

import (
	"context"
	"log/slog"
	"strings"

	"github.com/getmockd/simulator/internal/storage"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/simulator"
	"github.com/getmockd/simulator/pkg/util"
)

// paramMaxCallCountLegacy is the spelling older clients send.
const paramMaxCallCountLegacy = "maxCallcount"

var unescape = strings.NewReplacer(`\r`, "\r", `\n`, "\n")

// TestData is a registered socket test record.
type TestData struct {
	id       string
	request  string
	response string
	// maxCalls is ignored unless limited is set.
	maxCalls   int
	limited    bool
	closeAfter bool
	calls      int
}

// TestID implements storage.Record.
func (td *TestData) TestID() string { return td.id }

func (td *TestData) exhausted() bool {
	return td.limited && td.calls >= td.maxCalls
}

// Reply is what a session sends back for a matched request.
type Reply struct {
	TestID             string
	Response           string
	CloseAfterResponse bool
}

// Simulator is the socket registry. It is safe for concurrent use.
type Simulator struct {
	store *storage.Ordered[*TestData]
	log   *slog.Logger
}

var _ simulator.Registry = (*Simulator)(nil)

// New creates an empty socket simulator.
func New() *Simulator {
	return &Simulator{
		store: storage.NewOrdered[*TestData](),
		log:   logging.Nop(),
	}
}

// SetLogger sets the operational logger for the simulator.
func (s *Simulator) SetLogger(log *slog.Logger) {
	if log == nil {
		log = logging.Nop()
	}
	s.log = log
}

// Setup registers a test record. A record already registered under the same
// test id is replaced and its call count starts over.
func (s *Simulator) Setup(_ context.Context, req *simulator.Request) (string, error) {
	if err := req.Require(simulator.ParamTestID, simulator.ParamRequest, simulator.ParamResponse); err != nil {
		return "", err
	}
	id, _ := req.Param(simulator.ParamTestID)
	request, _ := req.Param(simulator.ParamRequest)
	response, _ := req.Param(simulator.ParamResponse)

	maxCalls, limited, err := req.Int(simulator.ParamMaxCallCount)
	if err == nil && !limited {
		maxCalls, limited, err = req.Int(paramMaxCallCountLegacy)
	}
	if err != nil {
		return "", err
	}

	td := &TestData{
		id:         id,
		request:    request,
		response:   unescape.Replace(response),
		maxCalls:   maxCalls,
		limited:    limited,
		closeAfter: req.Bool(simulator.ParamCloseAfterResponse),
	}
	s.store.Replace(td)
	s.log.Debug("testdata added", "testId", id, "request", util.Printable(request, 0), "maxCallCount", maxCalls, "closeAfterResponse", td.closeAfter)
	return id, nil
}

// Match returns the reply of the first record whose request equals request
// and whose call limit is not reached, counting the call.
func (s *Simulator) Match(request string) (Reply, bool) {
	td, ok := s.store.Match(func(td *TestData) bool {
		return td.request == request && !td.exhausted()
	}, func(td *TestData) {
		td.calls++
	})
	if !ok {
		return Reply{}, false
	}
	s.log.Info("matched testdata", "testId", td.id)
	return Reply{TestID: td.id, Response: td.response, CloseAfterResponse: td.closeAfter}, true
}

// Verify returns the call count of the record registered as testID.
func (s *Simulator) Verify(testID string) (int, bool) {
	var calls int
	ok := s.store.View(testID, func(td *TestData) { calls = td.calls })
	return calls, ok
}

// Clear removes all records.
func (s *Simulator) Clear() int {
	return s.store.Clear()
}

// Remove deletes the record registered as testID.
func (s *Simulator) Remove(testID string) int {
	return s.store.Remove(testID)
}

// Len returns the number of registered records.
func (s *Simulator) Len() int {
	return s.store.Len()
}
