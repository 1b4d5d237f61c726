package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sseEvent struct {
	id    string
	event string
	data  string
}

// readEvent reads one event, skipping comment lines such as keepalives.
func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		switch {
		case line == "":
			if ev.event != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id:"):
			ev.id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			ev.event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimPrefix(line, "data:")
		}
	}
}

func newTestServer(t *testing.T, start bool) (*hub.Hub, *httptest.Server) {
	t.Helper()
	log := logger.NewDiscardLogger()
	h := hub.New(log, hub.Options{
		HeartbeatInterval: time.Hour,
		StaleAfter:        3 * time.Hour,
		WriteTimeout:      time.Second,
	})

	r := gin.New()
	InitSSERouter(log, h, &r.RouterGroup)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	if start {
		require.NoError(t, h.Start(context.Background()))
		// Runs before srv.Close, so open streams are released first.
		t.Cleanup(func() { _ = h.Stop(context.Background()) })
	}
	return h, srv
}

func TestConnect_StreamsAcknowledgementAndEvents(t *testing.T) {
	h, srv := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/sse?clientId=c1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	ack := readEvent(t, body)
	assert.Equal(t, "connected", ack.event)
	assert.JSONEq(t, `{"type":"connected","clientId":"c1"}`, ack.data)

	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	event := hub.NewEvent("game_created", map[string]string{"gameId": "g1"})
	result := h.Publish(context.Background(), event)
	assert.Equal(t, 1, result.Delivered)

	got := readEvent(t, body)
	assert.Equal(t, event.ID, got.id)
	assert.Equal(t, "game_created", got.event)
	assert.JSONEq(t, `{"type":"game_created","payload":{"gameId":"g1"}}`, got.data)
}

func TestConnect_IssuesClientID(t *testing.T) {
	_, srv := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()

	ack := readEvent(t, bufio.NewReader(resp.Body))
	var payload struct {
		ClientID string `json:"clientId"`
	}
	require.NoError(t, json.Unmarshal([]byte(ack.data), &payload))
	assert.NotEmpty(t, payload.ClientID)
}

func TestConnect_ClientGoneRemovesEntry(t *testing.T) {
	h, srv := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/sse?clientId=c1")
	require.NoError(t, err)
	readEvent(t, bufio.NewReader(resp.Body))
	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, resp.Body.Close())
	require.Eventually(t, func() bool { return h.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConnect_DisconnectEndsResponse(t *testing.T) {
	h, srv := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/sse?clientId=c1")
	require.NoError(t, err)
	defer resp.Body.Close()

	body := bufio.NewReader(resp.Body)
	readEvent(t, body)
	require.Eventually(t, func() bool { return h.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	wasConnected, remaining := h.Disconnect("c1")
	assert.True(t, wasConnected)
	assert.Equal(t, 0, remaining)

	rest, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestConnect_InvalidClientID(t *testing.T) {
	h, srv := newTestServer(t, true)

	resp, err := http.Get(srv.URL + "/sse?clientId=has%20space")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestConnect_HubNotRunning(t *testing.T) {
	_, srv := newTestServer(t, false)

	resp, err := http.Get(srv.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
