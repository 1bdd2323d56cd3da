package admin

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minignet/internal/game"
	"minignet/internal/metrics"
	"minignet/internal/protocol"
)

func fixture(t *testing.T) (*Server, *game.World, *metrics.Collector) {
	t.Helper()
	w := game.NewWorld(nil)
	m := metrics.New()
	return New(w, m, nil, time.Second), w, m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStats(t *testing.T) {
	s, _, m := fixture(t)
	m.ConnectionOpened()
	m.RequestHandled(protocol.KindJoinSession)

	rec := get(t, s.Handler(), "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.ConnectionsTotal)
	assert.Equal(t, int64(1), snap.Requests["JoinSession"])
}

func TestSessions(t *testing.T) {
	s, w, _ := fixture(t)
	w.Join("beta", "x")
	w.Join("alpha", "a")
	w.Join("alpha", "b")
	require.NoError(t, w.Start("alpha"))
	require.NoError(t, w.SendMessage("alpha", protocol.NewMessage("a", protocol.ToOne("b"), []byte("m"))))

	rec := get(t, s.Handler(), "/sessions")
	require.Equal(t, http.StatusOK, rec.Code)

	var sums []game.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sums))
	require.Len(t, sums, 2)
	assert.Equal(t, "alpha", sums[0].ID)
	assert.Equal(t, "game", sums[0].State)
	assert.Equal(t, []string{"a", "b"}, sums[0].Gamers)
	assert.Equal(t, "a", sums[0].Current)
	assert.Equal(t, 1, sums[0].Pending["b"])
	assert.Equal(t, "join", sums[1].State)
}

func TestSessions_Empty(t *testing.T) {
	s, _, _ := fixture(t)

	rec := get(t, s.Handler(), "/sessions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSession(t *testing.T) {
	s, w, _ := fixture(t)
	w.Join("s1", "alice")

	rec := get(t, s.Handler(), "/sessions/s1")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum game.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "s1", sum.ID)

	rec = get(t, s.Handler(), "/sessions/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown session")
}

func TestReadOnly(t *testing.T) {
	s, _, _ := fixture(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServe_Shutdown(t *testing.T) {
	s, _, _ := fixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/stats")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("admin endpoint did not shut down")
	}
}
