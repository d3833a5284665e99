package showandtell

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*PresentationServer, *httptest.Server, *Deck) {
	t.Helper()
	reg := prometheus.NewRegistry()
	deck, _ := newTestDeck(t, "./test_slides", WithRegisterer(reg), WithLiveReload())
	log, _ := test.NewNullLogger()

	server, err := NewPresentationServer(context.Background(), deck, "", reg, log)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		server.Close()
	})
	return server, ts, deck
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServeRoutes(t *testing.T) {
	_, ts, deck := newTestServer(t)
	waitDeck(t, deck)

	status, body := get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "/dist/reveal.js")
	assert.Contains(t, body, `<script src="assets/livereload.js"></script>`)
	assert.Contains(t, body, `<svg id="02_superposition-diagram-1">`)

	status, body = get(t, ts.URL+"/slides/04_chapter-02_second")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Second of two")

	status, _ = get(t, ts.URL+"/slides/missing")
	assert.Equal(t, http.StatusNotFound, status)

	status, body = get(t, ts.URL+"/assets/theme.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, ".reveal")

	status, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `showandtell_diagrams_rendered_total{view="02_superposition"} 1`)
}

func TestLiveReload(t *testing.T) {
	server, ts, deck := newTestServer(t)
	waitDeck(t, deck)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/livereload", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		server.connLock.Lock()
		defer server.connLock.Unlock()
		return len(server.livereloadConns) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, server.Rerender())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Reload", string(msg))
}

func TestClosedConnectionIsDropped(t *testing.T) {
	server, ts, _ := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/livereload", nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		server.connLock.Lock()
		defer server.connLock.Unlock()
		return len(server.livereloadConns) == 1
	}, 5*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		server.connLock.Lock()
		defer server.connLock.Unlock()
		return len(server.livereloadConns) == 0
	}, 5*time.Second, 10*time.Millisecond)
}
