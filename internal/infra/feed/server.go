// Package feed exposes live session snapshots to external renderers over
// HTTP and websocket. It is strictly read-only: nothing in here mutates
// session state.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"standby/internal/domain"
)

// pushInterval is how often connected websocket clients receive a snapshot.
const pushInterval = 100 * time.Millisecond

// SnapshotProvider yields the latest immutable snapshot, or nil before the
// session has opened its device.
type SnapshotProvider interface {
	Snapshot() *domain.Snapshot
}

type Server struct {
	addr        string
	authToken   string
	provider    SnapshotProvider
	logger      *slog.Logger
	mux         *http.ServeMux
	server      *http.Server
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewServer(addr, authToken string, provider SnapshotProvider, logger *slog.Logger) *Server {
	s := &Server{
		addr:        addr,
		authToken:   authToken,
		provider:    provider,
		logger:      logger,
		mux:         http.NewServeMux(),
		rateLimiter: NewRateLimiter(60, time.Minute), // 60 requests per minute per IP
		upgrader: websocket.Upgrader{
			// Token auth gates access; browser renderers may live anywhere.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
	s.mux.HandleFunc("GET /status", s.rateLimiter.Middleware(s.withAuth(s.handleStatus)))
	s.mux.HandleFunc("GET /ws", s.withAuth(s.handleWS))
	// No rate limiting on health check
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket pushes for the session's lifetime
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("snapshot feed starting", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("snapshot feed error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	close(s.done)

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := s.server.Close(); err != nil {
				return fmt.Errorf("closing feed server: %w", err)
			}
		}
	}

	s.running = false
	return nil
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			token := r.Header.Get("X-Auth-Token")
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token != s.authToken {
				s.logger.Warn("unauthorized feed request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.provider.Snapshot()
	if snap == nil {
		http.Error(w, "no session active", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("encoding snapshot", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("feed client connected", "remote_addr", r.RemoteAddr)

	// Reader goroutine: detects client disconnect, discards input.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-clientGone:
			return
		case <-ticker.C:
			snap := s.provider.Snapshot()
			if snap == nil {
				continue
			}
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Info("feed client disconnected", "remote_addr", r.RemoteAddr)
				return
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	active := s.provider.Snapshot() != nil

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","running":%t,"session_active":%t}`, running, active)
}
