package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-scoreboard-sse/internal/application/facade"
	"go-scoreboard-sse/internal/domain"
	"go-scoreboard-sse/internal/infrastructure/hub"
	"go-scoreboard-sse/internal/infrastructure/logger"
	"go-scoreboard-sse/internal/infrastructure/persistence/memory"
	"go-scoreboard-sse/internal/interfaces/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPublisher struct {
	mu    sync.Mutex
	kinds []string
}

func (p *recordingPublisher) Notify(kind string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, kind)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newGameRouter(t *testing.T) (*gin.Engine, *recordingPublisher) {
	t.Helper()
	log := logger.NewDiscardLogger()
	pub := &recordingPublisher{}
	svc := facade.NewGameApplicationService(memory.NewGameRepository(), pub, nil, log)

	r := gin.New()
	NewGameHandler(svc, log).Register(r.Group("/api/v1"))
	return r, pub
}

func TestGameHandler_CRUD(t *testing.T) {
	r, pub := newGameRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/games", gin.H{"name": "hearts", "players": []string{"ann", "bob"}}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var game domain.Game
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &game))
	assert.Equal(t, "hearts", game.Name)

	w = doJSON(t, r, http.MethodPost, "/api/v1/games/"+game.ID+"/scores", gin.H{"player": "bob", "points": 26}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &game))
	assert.Equal(t, 26, game.Players[1].Score)

	w = doJSON(t, r, http.MethodPut, "/api/v1/games/"+game.ID+"/status", gin.H{"status": "finished"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/games", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Games []domain.Game `json:"games"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Games, 1)
	assert.Equal(t, domain.GameStatusFinished, list.Games[0].Status)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/games/"+game.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/games/"+game.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, []string{"game_created", "game_updated", "game_updated", "game_deleted"}, pub.kinds)
}

func TestGameHandler_Errors(t *testing.T) {
	r, pub := newGameRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/games", gin.H{"name": "hearts"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/games", gin.H{"name": "hearts", "players": []string{"ann", "ann"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/games/missing/scores", gin.H{"player": "ann", "points": 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/games/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Empty(t, pub.kinds)
}

// nopStream is a minimal always-succeeding stream.
type nopStream struct {
	done      chan struct{}
	closeOnce sync.Once
}

func newNopStream() *nopStream { return &nopStream{done: make(chan struct{})} }

func (s *nopStream) Type() string                               { return "nop" }
func (s *nopStream) Send(ctx context.Context, f *hub.Frame) error { return nil }
func (s *nopStream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
func (s *nopStream) IsClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
func (s *nopStream) Done() <-chan struct{} { return s.done }

func newRealtimeRouter(t *testing.T, token string) (*gin.Engine, *hub.Hub) {
	t.Helper()
	log := logger.NewDiscardLogger()
	h := hub.New(log, hub.Options{HeartbeatInterval: time.Hour, StaleAfter: 3 * time.Hour})
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	r := gin.New()
	NewRealtimeHandler(h, log).Register(r.Group("/api/v1"), middleware.AdminToken(token))
	return r, h
}

func TestRealtimeHandler_Disconnect(t *testing.T) {
	r, h := newRealtimeRouter(t, "")
	_, err := h.Admit(context.Background(), "a", newNopStream())
	require.NoError(t, err)
	_, err = h.Admit(context.Background(), "b", newNopStream())
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/api/v1/realtime/disconnect", DisconnectRequest{ClientID: "a"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"wasConnected":true,"remainingClients":1}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/realtime/disconnect", DisconnectRequest{ClientID: "a"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"wasConnected":false,"remainingClients":1}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/v1/realtime/disconnect", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRealtimeHandler_StatusAndClear(t *testing.T) {
	r, h := newRealtimeRouter(t, "s3cret")
	admin := http.Header{middleware.AdminTokenHeader: {"s3cret"}}

	w := doJSON(t, r, http.MethodGet, "/api/v1/admin/realtime/status", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/admin/realtime/status", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"clientCount":0,"oldestConnection":null,"newestConnection":null}`, w.Body.String())

	for _, id := range []string{"a", "b", "c"} {
		_, err := h.Admit(context.Background(), id, newNopStream())
		require.NoError(t, err)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/admin/realtime/status", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var status hub.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 3, status.ClientCount)
	require.NotNil(t, status.OldestConnection)
	require.NotNil(t, status.NewestConnection)
	assert.False(t, status.NewestConnection.Before(*status.OldestConnection))

	w = doJSON(t, r, http.MethodPost, "/api/v1/admin/realtime/clear", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":3}`, w.Body.String())
	assert.Equal(t, 0, h.ConnectionCount())
}
