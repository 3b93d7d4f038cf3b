package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/simulator/internal/id"
	"github.com/getmockd/simulator/pkg/httputil"
	"github.com/getmockd/simulator/pkg/logging"
	"github.com/getmockd/simulator/pkg/metrics"
	"github.com/getmockd/simulator/pkg/rest"
	"github.com/getmockd/simulator/pkg/simulator"
	"github.com/getmockd/simulator/pkg/socket"
	"github.com/getmockd/simulator/pkg/util"
	"github.com/getmockd/simulator/pkg/ws"
	"github.com/getmockd/simulator/pkg/xmlutil"
)

// MaxRequestBodySize is the default limit on request bodies (10MB).
const MaxRequestBodySize = 10 << 20

// Reply texts.
const (
	setupFailedText  = "Failed to add test"
	noResponseText   = "No response was created when executing test"
	bodyTooLargeText = "Request body too large"
)

type route string

const (
	routeClear        route = "clear"
	routeWSSetup      route = "ws-setup"
	routeSocketSetup  route = "socket-setup"
	routeSocketVerify route = "socket-verify"
	routeLegacySetup  route = "legacy-setup"
	routeRESTSetup    route = "rest-setup"
	routeVerify       route = "verify"
	routeExecute      route = "execute"
)

// routes is checked in order; the first fragment contained in the request
// path wins.
var routes = []struct {
	fragment string
	route    route
}{
	{"clearData", routeClear},
	{"ws/setup", routeWSSetup},
	{"socket/setup", routeSocketSetup},
	{"socket/verify", routeSocketVerify},
	{"setupTest", routeLegacySetup},
	{"servlet/setup", routeRESTSetup},
	{"verifyTest", routeVerify},
}

func routeOf(path string) route {
	for _, r := range routes {
		if strings.Contains(path, r.fragment) {
			return r.route
		}
	}
	return routeExecute
}

// Handler serves the simulator endpoints over HTTP.
type Handler struct {
	rest    *rest.Simulator
	ws      *ws.Simulator
	socket  *socket.Simulator
	set     simulator.Set
	log     *slog.Logger
	metrics *metrics.Metrics
	maxBody int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the operational logger.
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHandlerMetrics records setups and executions on m.
func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMaxBodySize limits request bodies to n bytes.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler creates a handler serving the given simulators.
func NewHandler(restSim *rest.Simulator, wsSim *ws.Simulator, socketSim *socket.Simulator, opts ...HandlerOption) *Handler {
	h := &Handler{
		rest:    restSim,
		ws:      wsSim,
		socket:  socketSim,
		set:     simulator.Set{REST: restSim, WS: wsSim, Socket: socketSim},
		log:     logging.Nop(),
		maxBody: MaxRequestBodySize,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := newStatusRecorder(w)
	rt := routeOf(r.URL.Path)
	log := h.log.With("requestId", id.Short())

	log.Debug("request received",
		"uri", r.URL.Path,
		"route", string(rt),
		"contentType", r.Header.Get("Content-Type"),
		"contentLength", r.ContentLength)

	switch rt {
	case routeClear:
		h.handleClear(rec, log)
	case routeWSSetup, routeLegacySetup:
		h.handleSetup(rec, r, log, metrics.ProtocolWS, h.ws)
	case routeSocketSetup:
		h.handleSetup(rec, r, log, metrics.ProtocolSocket, h.socket)
	case routeRESTSetup:
		h.handleSetup(rec, r, log, metrics.ProtocolREST, h.rest)
	case routeSocketVerify:
		h.handleVerify(rec, r, log, h.socket)
	case routeVerify:
		h.handleVerify(rec, r, log, h.ws, h.rest)
	default:
		h.handleExecute(rec, r, log, start)
	}

	log.Info("request handled",
		"route", string(rt),
		"status", rec.statusCode,
		"duration", time.Since(start))
}

func (h *Handler) handleClear(w http.ResponseWriter, log *slog.Logger) {
	n := h.set.Clear()
	h.updateRegistered()
	log.Info("testdata cleared", "removed", n)
	httputil.WriteOK(w, "Testdata cleared: number of entries removed="+strconv.Itoa(n))
}

func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request, log *slog.Logger, protocol string, target simulator.Registry) {
	req, err := h.setupRequest(w, r, log)
	if err == nil {
		var id string
		id, err = h.set.Replace(r.Context(), target, req)
		if err == nil {
			h.metrics.Setup(protocol, nil)
			h.updateRegistered()
			log.Info("testdata added", "protocol", protocol, "testId", id)
			httputil.WriteOK(w, "Testdata added: testId="+id)
			return
		}
	}

	h.metrics.Setup(protocol, err)
	log.Warn("failed to add test", "protocol", protocol, "error", err)
	if isBodyTooLarge(err) {
		httputil.WriteText(w, http.StatusRequestEntityTooLarge, bodyTooLargeText)
		return
	}
	httputil.WriteBadRequest(w, setupFailedText)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request, log *slog.Logger, targets ...simulator.Registry) {
	req, err := h.setupRequest(w, r, log)
	if err != nil {
		log.Warn("malformed verify request", "error", err)
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := req.Require(simulator.ParamTestID); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	id, _ := req.Param(simulator.ParamTestID)

	for _, target := range targets {
		if n, ok := target.Verify(id); ok {
			log.Debug("testdata verified", "testId", id, "calls", n)
			httputil.WriteOK(w, "Callcount: "+strconv.Itoa(n))
			return
		}
	}
	httputil.WriteNotFound(w, "Failed to find matching testdata for the testId="+id)
}

func (h *Handler) handleExecute(w *statusRecorder, r *http.Request, log *slog.Logger, start time.Time) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		log.Warn("failed to read request body", "error", err)
		if isBodyTooLarge(err) {
			httputil.WriteText(w, http.StatusRequestEntityTooLarge, bodyTooLargeText)
		} else {
			httputil.WriteBadRequest(w, fmt.Sprintf("%v: %v", simulator.ErrMalformedRequest, err))
		}
		return
	}

	cs := requestCharset(r, log)
	req := &simulator.Request{
		Path:        r.URL.Path,
		QueryString: r.URL.RawQuery,
		Parameters:  r.URL.Query(),
		Body:        bytes.NewReader(body),
		Charset:     cs,
	}

	protocol, exec := metrics.ProtocolREST, simulator.Executor(h.rest)
	if len(body) > 0 && isXMLContentType(r.Header.Get("Content-Type")) {
		protocol, exec = metrics.ProtocolWS, h.ws
	}
	log.Debug("executing", "protocol", protocol, "body", util.TruncateBody(string(body), 0))

	resp, err := exec.Execute(r.Context(), req)
	if err != nil {
		writeExecuteError(w, log, protocol, err)
	} else {
		writeResponse(w, log, resp, cs)
	}
	h.metrics.Execution(protocol, executionResult(w.statusCode), time.Since(start))
}

func writeExecuteError(w http.ResponseWriter, log *slog.Logger, protocol string, err error) {
	switch {
	case errors.Is(err, simulator.ErrNoMatch):
		log.Info("no matching testdata", "protocol", protocol)
		httputil.WriteNotFound(w, socket.DefaultNoMatchResponse)
	case errors.Is(err, simulator.ErrMalformedRequest), errors.Is(err, simulator.ErrInvalidParameter):
		log.Warn("malformed request", "protocol", protocol, "error", err)
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Debug("request abandoned", "protocol", protocol, "error", err)
		httputil.WriteText(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error("execute failed", "protocol", protocol, "error", err)
		httputil.WriteInternalError(w, err.Error())
	}
}

// writeResponse copies the recorded headers, then writes the body. XML
// bodies are encoded in the request charset.
func writeResponse(w http.ResponseWriter, log *slog.Logger, resp *simulator.Response, cs string) {
	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}

	switch body := resp.Body.(type) {
	case simulator.XMLBody:
		cs = xmlutil.CanonicalCharset(cs)
		data, err := xmlutil.Encode(body.Doc, cs)
		if err != nil {
			log.Error("failed to encode response", "charset", cs, "error", err)
			w.Header().Del("Content-Type")
			httputil.WriteInternalError(w, err.Error())
			return
		}
		httputil.WriteXML(w, http.StatusOK, data, cs)
	case simulator.TextBody:
		httputil.WriteOK(w, body.Text)
	default:
		httputil.WriteOK(w, noResponseText)
	}
}

// setupRequest builds a parameter-only request from the query string and
// an urlencoded body, decoding values sent in a non-UTF-8 charset.
func (h *Handler) setupRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*simulator.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %w", simulator.ErrMalformedRequest, err)
	}

	cs := requestCharset(r, log)
	params, err := decodeValues(r.Form, cs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", simulator.ErrMalformedRequest, err)
	}

	req := simulator.NewRequest(params)
	req.Path = r.URL.Path
	req.QueryString = r.URL.RawQuery
	req.Charset = cs
	return req, nil
}

// requestCharset returns the charset declared by the Content-Type header in
// its canonical form, or "" when none is declared. An unknown charset is
// logged and treated as undeclared.
func requestCharset(r *http.Request, log *slog.Logger) string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	label := params["charset"]
	if label == "" {
		return ""
	}
	if _, err := xmlutil.Encoding(label); err != nil {
		log.Warn("failed to use request charset", "charset", label)
		return ""
	}
	return xmlutil.CanonicalCharset(label)
}

func decodeValues(values url.Values, cs string) (url.Values, error) {
	if cs == "" || strings.EqualFold(cs, xmlutil.DefaultCharset) {
		return values, nil
	}
	out := make(url.Values, len(values))
	for name, vs := range values {
		decoded := make([]string, len(vs))
		for i, v := range vs {
			s, err := xmlutil.DecodeString([]byte(v), cs)
			if err != nil {
				return nil, err
			}
			decoded[i] = s
		}
		out[name] = decoded
	}
	return out, nil
}

func isXMLContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "xml")
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func (h *Handler) updateRegistered() {
	if h.metrics == nil {
		return
	}
	h.metrics.SetRegistered(metrics.ProtocolREST, h.rest.Len())
	h.metrics.SetRegistered(metrics.ProtocolWS, h.ws.Len())
	h.metrics.SetRegistered(metrics.ProtocolSocket, h.socket.Len())
}
