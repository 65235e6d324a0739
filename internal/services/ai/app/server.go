package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/skillswap/internal/platform/httpx"
	"github.com/louisbranch/skillswap/internal/platform/timeouts"
	"github.com/louisbranch/skillswap/internal/services/ai/assist"
	"github.com/louisbranch/skillswap/internal/services/ai/provider"
)

// Config defines the inputs for the AI sidecar process.
type Config struct {
	HTTPAddr          string
	AllowedOrigins    []string
	Provider          provider.Config
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// ProviderTimeout caps a single upstream generation.
	ProviderTimeout time.Duration
}

// Server hosts the AI moderation and summarization endpoints.
type Server struct {
	listener        net.Listener
	httpServer      *http.Server
	shutdownTimeout time.Duration
	closeOnce       sync.Once
}

// NewServer builds the provider named by cfg and listens on cfg.HTTPAddr.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	generator, err := provider.New(ctx, cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("build ai provider: %w", err)
	}
	assistant, err := assist.New(generator)
	if err != nil {
		return nil, err
	}
	return NewServerWithAssistant(cfg, assistant)
}

// NewServerWithAssistant listens on cfg.HTTPAddr and serves the given assistant.
func NewServerWithAssistant(cfg Config, assistant Assistant) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = timeouts.Provider
	}

	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}
	handler := httpx.Chain(
		NewHandler(assistant, cfg.ProviderTimeout),
		httpx.RecoverPanic(),
		httpx.RequestID("ai"),
		httpx.Trace("skillswap/ai"),
		httpx.CORS(cfg.AllowedOrigins),
	)
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// Addr returns the listener address for the AI server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an AI server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init ai server: %w", err)
	}
	return server.Serve(ctx)
}

// Serve starts the AI server and blocks until it stops or context ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("ai server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.httpServer != nil {
			_ = s.httpServer.Close()
		}
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Printf("close ai listener: %v", err)
			}
		}
	})
}
