package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-scoreboard-sse/internal/infrastructure/config"
	"go-scoreboard-sse/internal/infrastructure/logger"
)

// Server is a component with a blocking Start and a graceful Stop.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type HTTPServer struct {
	handler http.Handler
	cfg     config.ServerConfig
	logger  logger.Logger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

var _ Server = (*HTTPServer)(nil)

func NewHTTPServer(handler http.Handler, cfg config.ServerConfig, logger logger.Logger) *HTTPServer {
	return &HTTPServer{
		handler: handler,
		cfg:     cfg,
		logger:  logger.WithField("component", "http"),
	}
}

// Start listens on the configured address and serves until Stop. WriteTimeout is
// left unset: push streams stay open indefinitely and bound their own writes.
func (h *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.ListenOn)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.listener = ln
	h.srv = &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(h.cfg.ReadTimeoutSec) * time.Second,
		IdleTimeout:       time.Duration(h.cfg.IdleTimeoutSec) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	srv := h.srv
	h.mu.Unlock()

	h.logger.Infof("HTTP server listening on %s", ln.Addr())

	var eg errgroup.Group
	eg.Go(func() error {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

// Addr returns the bound address once Start is listening, nil before.
func (h *HTTPServer) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *HTTPServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
