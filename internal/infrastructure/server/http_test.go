package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-scoreboard-sse/internal/infrastructure/config"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

func TestHTTPServer_StartStop(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	srv := NewHTTPServer(handler, config.ServerConfig{
		ListenOn:       "127.0.0.1:0",
		ReadTimeoutSec: 5,
		IdleTimeoutSec: 5,
	}, logger.NewDiscardLogger())

	assert.NoError(t, srv.Stop(context.Background()), "stop before start is a no-op")

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(context.Background()) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr().String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	require.NoError(t, srv.Stop(context.Background()))
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
