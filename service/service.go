// Package service serves written reports over HTTP for the serve command.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/craft-report/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Config holds what the report server needs
type Config struct {
	Addr      string // Listen address, host:port
	ReportDir string // Directory holding the written artifacts
	Index     string // Document served at the root path
}

// Service serves the report directory together with /healthz and /metrics.
// It implements cliapp.Lifecycle.
type Service struct {
	cfg Config
	log log.Logger

	server   *http.Server
	listener net.Listener
	stopped  atomic.Bool
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	s := &Service{cfg: cfg, log: logger}
	s.stopped.Store(true)
	return s
}

// Handler returns the routes of the server
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", &HealthzServer{})
	mux.Handle("GET /metrics", metrics.Handler())
	if s.cfg.Index != "" {
		mux.Handle("GET /{$}", http.RedirectHandler("/"+s.cfg.Index, http.StatusFound))
	}
	mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.ReportDir)))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
	})
	return c.Handler(mux)
}

// Start binds the listener and serves in the background
func (s *Service) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}
	s.stopped.Store(false)

	s.log.Info("Serving reports", "addr", listener.Addr().String(), "dir", s.cfg.ReportDir)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Report server failed", "err", err)
			metrics.RecordErrorDetails("serve", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Service) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts the server down
func (s *Service) Stop(ctx context.Context) error {
	if s.stopped.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down report server: %w", err)
	}
	s.log.Info("Report server stopped")
	return nil
}

func (s *Service) Stopped() bool {
	return s.stopped.Load()
}
