package devserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livefir/hits/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterSource = `<script>let $state = { count: 0 }; function inc() { $state.count++; }</script>
<p>{$state.count}</p>
<button @click="inc">+</button>
`

func writeComponent(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name)+".hits")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newTestServer(t *testing.T) (*Server, *httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Src = dir
	cfg.Minify = false

	srv := New(cfg, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts, dir
}

func get(t *testing.T, url string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

func TestServerIndex(t *testing.T) {
	_, ts, dir := newTestServer(t)
	writeComponent(t, dir, "counter", counterSource)
	writeComponent(t, dir, "widgets/todo-list", `<ul></ul>`)
	writeComponent(t, dir, ".cache/ignored", `<p></p>`)

	status, body, _ := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `href="/c/counter"`)
	assert.Contains(t, body, `href="/c/widgets/todo-list"`)
	assert.NotContains(t, body, "ignored")
}

func TestServerModule(t *testing.T) {
	_, ts, dir := newTestServer(t)
	writeComponent(t, dir, "counter", counterSource)

	status, body, header := get(t, ts.URL+"/c/counter.js")
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, header.Get("Content-Type"), "application/javascript")
	assert.Contains(t, body, "export default function Counter($target")
	assert.Contains(t, body, "addEventListener('click'")

	status, body, _ = get(t, ts.URL+"/_stats")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"compiles":1`)
}

func TestServerShell(t *testing.T) {
	_, ts, dir := newTestServer(t)
	writeComponent(t, dir, "counter", counterSource)

	status, body, _ := get(t, ts.URL+"/c/counter")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `data-module="/c/counter.js"`)
	assert.Contains(t, body, "/_reload")
}

func TestServerErrors(t *testing.T) {
	srv, ts, dir := newTestServer(t)
	writeComponent(t, dir, "broken", "<p>x</p>\n<script>\nlet a = ;\n</script>")

	t.Run("CompileFailure", func(t *testing.T) {
		status, body, _ := get(t, ts.URL+"/c/broken.js")
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Contains(t, body, "line 3")
		assert.Contains(t, body, ">    3 | let a = ;")
		assert.Equal(t, int64(1), srv.Metrics().Snapshot().CompileErrors)
	})

	t.Run("Missing", func(t *testing.T) {
		status, _, _ := get(t, ts.URL+"/c/nothing.js")
		assert.Equal(t, http.StatusNotFound, status)
		status, _, _ = get(t, ts.URL+"/c/nothing")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("OutsideSource", func(t *testing.T) {
		status, _, _ := get(t, ts.URL+"/c/..%2f..%2fetc%2fpasswd.js")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestServerReloadBroadcast(t *testing.T) {
	srv, ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/_reload"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Registry().Count() == 1 },
		2*time.Second, 10*time.Millisecond)

	srv.Reload([]string{"counter.hits"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ReloadMessage, string(msg))

	conn.Close()
	assert.Eventually(t, func() bool { return srv.Registry().Count() == 0 },
		2*time.Second, 10*time.Millisecond)

	snap := srv.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.Reloads)
	assert.Equal(t, int64(1), snap.MaxActiveClients)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Src = t.TempDir()
	cfg.Serve.Addr = "127.0.0.1:0"
	cfg.Serve.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg, nil).Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
