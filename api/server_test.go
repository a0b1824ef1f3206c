package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/retadi-server/netaddr"
	"github.com/moyoez/retadi-server/session"
	"github.com/moyoez/retadi-server/tool"
	"github.com/moyoez/retadi-server/transfer"
	"github.com/moyoez/retadi-server/types"
)

func TestMain(m *testing.M) {
	tool.DefaultLogger.SetLevel(log.ErrorLevel)
	tool.DefaultLogger.SetReportCaller(false)
	os.Exit(m.Run())
}

func lanResolver(scheme string) *netaddr.Resolver {
	_, n, _ := net.ParseCIDR("192.168.1.20/24")
	n.IP = net.ParseIP("192.168.1.20").To4()
	return netaddr.NewResolverWithSource(scheme, func() ([]netaddr.Interface, error) {
		return []netaddr.Interface{{Name: "eth0", Flags: net.FlagUp, Addrs: []net.Addr{n}}}, nil
	})
}

func assetRoot(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "index.html"), []byte("<h1>app</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "main.js"), []byte("console.log(1)"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	return root
}

func newTestServer(t testing.TB) (*Server, *session.State) {
	t.Helper()
	state := session.New()
	return NewServer(state, Options{Resolver: lanResolver("http")}), state
}

func do(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func assertNoCache(t *testing.T, h http.Header) {
	t.Helper()
	cc := h.Get("Cache-Control")
	for _, directive := range []string{"no-cache", "no-store", "must-revalidate"} {
		assert.Contains(t, cc, directive)
	}
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
}

func TestConnectAcknowledgesAnyBody(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler(assetRoot(t))

	tests := []struct {
		name string
		body []byte
	}{
		{name: "empty", body: nil},
		{name: "text", body: []byte("tablet-1")},
		{name: "json", body: []byte(`{"alias":"Kitchen Tab","deviceType":"tablet"}`)},
		{name: "binary", body: []byte{0x00, 0xff, 0xfe, 0x01}},
		{name: "oversized", body: bytes.Repeat([]byte("z"), types.MaxHandshakePayload+100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(handler, http.MethodPost, "/api/connect", bytes.NewReader(tt.body))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Connected successfully", rec.Body.String())
			assertNoCache(t, rec.Header())
		})
	}

	devices := srv.Devices()
	require.Len(t, devices, len(tests))
	var sawAlias, sawTruncated bool
	for _, d := range devices {
		assert.NotEmpty(t, d.ID)
		assert.Equal(t, "192.0.2.1", d.RemoteAddr)
		if d.Alias == "Kitchen Tab" {
			sawAlias = true
			assert.Equal(t, "tablet", d.DeviceType)
		}
		if len(d.Payload) == types.MaxHandshakePayload {
			sawTruncated = true
		}
	}
	assert.True(t, sawAlias)
	assert.True(t, sawTruncated)
}

type failingHandler struct{ calls int }

func (f *failingHandler) OnConnect(*types.ConnectedDevice) error {
	f.calls++
	return errors.New("handler exploded")
}

func TestConnectIgnoresHandlerError(t *testing.T) {
	h := &failingHandler{}
	srv := NewServer(session.New(), Options{Resolver: lanResolver("http"), Handler: h})
	rec := do(srv.Handler(t.TempDir()), http.MethodPost, "/api/connect", strings.NewReader("x"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ConnectAck, rec.Body.String())
	assert.Equal(t, 1, h.calls)
}

func TestStaticServing(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler(assetRoot(t))

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
		wantBody string
		wantLoc  string
	}{
		{name: "root index", method: http.MethodGet, target: "/", wantCode: http.StatusOK, wantBody: "hello"},
		{name: "nested index", method: http.MethodGet, target: "/app/", wantCode: http.StatusOK, wantBody: "<h1>app</h1>"},
		{name: "nested file", method: http.MethodGet, target: "/app/main.js", wantCode: http.StatusOK, wantBody: "console.log(1)"},
		{name: "directory redirect", method: http.MethodGet, target: "/app", wantCode: http.StatusMovedPermanently, wantLoc: "/app/"},
		{name: "directory without index", method: http.MethodGet, target: "/empty/", wantCode: http.StatusNotFound},
		{name: "missing", method: http.MethodGet, target: "/nope.css", wantCode: http.StatusNotFound},
		{name: "traversal", method: http.MethodGet, target: "/../../etc/passwd", wantCode: http.StatusNotFound},
		{name: "head", method: http.MethodHead, target: "/", wantCode: http.StatusOK},
		{name: "post to asset", method: http.MethodPost, target: "/index.html", wantCode: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(handler, tt.method, tt.target, nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
			assertNoCache(t, rec.Header())
		})
	}
}

func TestStaticContentType(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(srv.Handler(assetRoot(t)), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
}

func TestPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/connect", nil)
	req.Header.Set("Origin", "http://elsewhere.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	srv.Handler(t.TempDir()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestStatusEndpoint(t *testing.T) {
	srv, state := newTestServer(t)
	require.NoError(t, state.MarkRunning("http://192.168.1.20:3000", 3000))
	handler := srv.Handler(t.TempDir())
	do(handler, http.MethodPost, "/api/connect", strings.NewReader(`{"alias":"Tab"}`))

	rec := do(handler, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var status types.StatusResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Running)
	assert.Equal(t, "http://192.168.1.20:3000", status.URL)
	assert.Equal(t, uint16(3000), status.Port)
	assert.Equal(t, tool.Version, status.Version)
	require.Len(t, status.Devices, 1)
	assert.Equal(t, "Tab", status.Devices[0].Alias)
	require.Len(t, status.Interfaces, 1)
	assert.Equal(t, "192.168.1.20", status.Interfaces[0].IPAddress)
}

func boundPort(t *testing.T, srv *Server) int {
	t.Helper()
	addr, ok := srv.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return addr.Port
}

func TestStartServeStop(t *testing.T) {
	srv, state := newTestServer(t)
	root := assetRoot(t)

	require.NoError(t, srv.Start(0, root))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	port := boundPort(t, srv)
	snap := state.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, uint16(port), snap.Port)
	assert.Equal(t, fmt.Sprintf("http://192.168.1.20:%d", port), snap.URL)
	assert.Regexp(t, `^http://[0-9.]+:\d+$`, snap.URL)

	local := fmt.Sprintf("http://127.0.0.1:%d", port)
	resp, err := http.Get(local + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

	ack, err := transfer.Announce(context.Background(), local, []byte("tablet-1"))
	require.NoError(t, err)
	assert.Equal(t, types.ConnectAck, ack)

	assert.ErrorIs(t, srv.Start(0, root), ErrAlreadyRunning)
	assert.Equal(t, snap, state.Snapshot())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	snap = state.Snapshot()
	assert.False(t, snap.Running)
	assert.Empty(t, snap.URL)
	assert.Nil(t, srv.Addr())
	assert.ErrorIs(t, srv.Stop(ctx), ErrNotRunning)

	_, err = http.Get(local + "/")
	assert.Error(t, err)

	require.NoError(t, srv.Start(0, root))
	assert.True(t, state.Snapshot().Running)
}

func TestStartBindError(t *testing.T) {
	occupied, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := uint16(occupied.Addr().(*net.TCPAddr).Port)

	srv, state := newTestServer(t)
	err = srv.Start(port, assetRoot(t))
	require.Error(t, err)

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, port, bindErr.Port)
	assert.ErrorIs(t, err, ErrBind)

	snap := state.Snapshot()
	assert.False(t, snap.Running)
	assert.Empty(t, snap.URL)
	assert.Nil(t, srv.Addr())
}

func TestStartHTTPS(t *testing.T) {
	state := session.New()
	srv := NewServer(state, Options{Protocol: "https", Resolver: lanResolver("https")})
	require.NoError(t, srv.Start(0, assetRoot(t)))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	port := boundPort(t, srv)
	assert.Equal(t, fmt.Sprintf("https://192.168.1.20:%d", port), state.Snapshot().URL)

	client := tool.NewHTTPClient("https")
	resp, err := client.Get(fmt.Sprintf("https://127.0.0.1:%d/", port))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "hello", string(body))
}

func TestDefaultHandlerRecordsDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	h, ok := srv.handler.(*Handler)
	require.True(t, ok)
	require.NoError(t, h.OnConnect(&types.ConnectedDevice{ID: "d1", RemoteAddr: "10.0.0.9", ConnectedAt: time.Now()}))
	assert.Error(t, h.OnConnect(nil))
	require.Len(t, srv.Devices(), 1)
	assert.Equal(t, "d1", srv.Devices()[0].ID)
}
