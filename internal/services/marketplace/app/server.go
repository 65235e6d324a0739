package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/skillswap/internal/platform/timeouts"
	"github.com/louisbranch/skillswap/internal/services/ai/aiclient"
	chatserver "github.com/louisbranch/skillswap/internal/services/chat/app"
	"github.com/louisbranch/skillswap/internal/services/marketplace/conversation"
	"github.com/louisbranch/skillswap/internal/services/marketplace/storage/sqlite"
	"github.com/louisbranch/skillswap/internal/services/marketplace/token"
)

// Config defines the inputs for the marketplace API process.
type Config struct {
	HTTPAddr       string
	DBPath         string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	CookieSecure   bool
	MeetingBaseURL string
	// AIBaseURL enables moderation and summaries when set.
	AIBaseURL          string
	ModerationFailOpen bool
	SweepInterval      time.Duration
	SwapPendingTTL     time.Duration
	ReadHeaderTimeout  time.Duration
	ShutdownTimeout    time.Duration
}

// Server hosts the REST API, the chat WebSocket, and background sweeps.
type Server struct {
	listener        net.Listener
	httpServer      *http.Server
	store           *sqlite.Store
	hub             *chatserver.Hub
	sweeper         *Sweeper
	shutdownTimeout time.Duration
	closeOnce       sync.Once
}

// NewServer opens storage, wires services, and listens on cfg.HTTPAddr.
func NewServer(cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}
	tokens, err := token.NewManager(token.Config{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL})
	if err != nil {
		return nil, fmt.Errorf("build token manager: %w", err)
	}

	var ai *aiclient.Client
	if strings.TrimSpace(cfg.AIBaseURL) != "" {
		ai, err = aiclient.New(aiclient.Config{BaseURL: cfg.AIBaseURL})
		if err != nil {
			return nil, fmt.Errorf("build ai client: %w", err)
		}
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	convCfg := conversation.Config{Store: store, FailOpen: cfg.ModerationFailOpen}
	deps := Deps{
		Store:          store,
		Tokens:         tokens,
		MeetingBaseURL: cfg.MeetingBaseURL,
		AllowedOrigins: cfg.AllowedOrigins,
		CookieSecure:   cfg.CookieSecure,
	}
	if ai != nil {
		convCfg.Moderator = ai
		deps.Summarizer = ai
	}
	conv, err := conversation.New(convCfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	hub := chatserver.NewHub()
	conv.SetPublisher(hub)
	deps.Conversation = conv
	deps.Live = chatserver.NewHandler(chatserver.HandlerConfig{
		Authenticator:  NewAuthenticator(tokens, store),
		Conversation:   conv,
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	handler, err := NewHandler(deps)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	listener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}
	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		},
		store:           store,
		hub:             hub,
		sweeper:         NewSweeper(store, cfg.SweepInterval, cfg.SwapPendingTTL, time.Now),
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves the marketplace until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := NewServer(cfg)
	if err != nil {
		return fmt.Errorf("init marketplace server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve marketplace: %w", err)
	}
	return nil
}

// ListenAndServe serves HTTP and runs the sweeper until ctx ends or either
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("marketplace server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	log.Printf("marketplace server listening on %s", s.Addr())
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return s.sweeper.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.hub != nil {
			s.hub.Close()
		}
		if s.httpServer != nil {
			_ = s.httpServer.Close()
		}
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Printf("close marketplace listener: %v", err)
			}
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				log.Printf("close marketplace store: %v", err)
			}
		}
	})
}

func openStore(path string) (*sqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open marketplace sqlite store: %w", err)
	}
	return store, nil
}
