package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/simulator/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Socket.Host = "127.0.0.1"
	cfg.Socket.Port = 0
	return cfg
}

// runServer runs srv until the returned stop is called or the test ends.
// stop returns the result of Run.
func runServer(t *testing.T, cfg *config.Config) (*Server, func() error) {
	t.Helper()
	srv := NewServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var (
		once   sync.Once
		runErr error
	)
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case runErr = <-done:
			case <-time.After(5 * time.Second):
				runErr = errors.New("Run did not return after cancel")
			}
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })

	require.Eventually(t, srv.IsRunning, 2*time.Second, 10*time.Millisecond)
	return srv, stop
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_RunServesHTTPAndSocket(t *testing.T) {
	srv, stop := runServer(t, testConfig())
	base := "http://" + srv.Addr().String()

	resp, err := http.PostForm(base+"/simulator/socket/setup", url.Values{
		"testId": {"login"}, "request": {"LOGIN"}, "response": {`OK\r\n`},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, srv.SocketAddr())
	conn, err := net.DialTimeout("tcp", srv.SocketAddr().String(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	_, err = io.WriteString(conn, "LOGIN")
	require.NoError(t, err)
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "OK\r\n", string(buf[:n]))

	status, body := get(t, base+"/simulator/socket/verify?testId=login")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Callcount: 1", body)

	status, body = get(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"socket":1`)

	// The session records the execution after writing the reply.
	assert.Eventually(t, func() bool {
		status, body := get(t, base+"/metrics")
		return status == http.StatusOK &&
			strings.Contains(body, `simulator_executions_total{protocol="socket",result="match"} 1`)
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, stop())
	assert.False(t, srv.IsRunning())

	_, err = conn.Read(buf)
	assert.Error(t, err, "sessions are closed on shutdown")
}

func TestServer_SocketDisabledAndMetricsOff(t *testing.T) {
	cfg := testConfig()
	cfg.Socket.Enabled = false
	cfg.Metrics.Enabled = false
	srv, _ := runServer(t, cfg)

	assert.Nil(t, srv.SocketAddr())
	assert.Nil(t, srv.Metrics())

	status, body := get(t, "http://"+srv.Addr().String()+"/metrics")
	assert.Equal(t, http.StatusNotFound, status, "/metrics falls through to the simulator")
	assert.Equal(t, "Failed to find matching testdata for the request", body)
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(testConfig())
	require.NoError(t, srv.Start(context.Background()))
	assert.ErrorIs(t, srv.Start(context.Background()), ErrServerRunning)

	status, _ := get(t, "http://"+srv.Addr().String()+"/healthz")
	assert.Equal(t, http.StatusOK, status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx), "stopping twice is a no-op")
	assert.False(t, srv.IsRunning())
}

func TestServer_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Socket.Port = ln.Addr().(*net.TCPAddr).Port

	srv := NewServer(cfg)
	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.False(t, srv.IsRunning())
}

func TestServer_LoadFixtures(t *testing.T) {
	srv := NewServer(testConfig())
	f, err := config.ParseFixture([]byte("rest:\n  - testId: hello\n    path: /hello\n    response: world\n"))
	require.NoError(t, err)

	n, err := srv.LoadFixtures(context.Background(), []*config.Fixture{f})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, srv.REST().Len())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hello", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "world", rec.Body.String())
}
