// Package callback receives the OAuth completion redirect on a loopback
// address so a terminal client can finish a browser sign-in.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/pixora/internal/flows"
	middlewareCustom "github.com/BradenHooton/pixora/internal/middleware"
)

// Path is where the backend redirects after a provider sign-in
const Path = "/auth-success"

// Result is the outcome of one redirect
type Result struct {
	Outcome flows.CallbackOutcome
	Err     error
}

type Config struct {
	Addr      string
	Env       string
	RateLimit int // requests per minute; 0 uses the default auth limit
}

// Server serves Path. Every request is handled by a fresh flows.Callback,
// the equivalent of mounting the callback page once per redirect.
type Server struct {
	cfg    Config
	deps   flows.Deps
	logger *slog.Logger

	results chan Result

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	active   map[*flows.Callback]struct{} // callbacks with a navigation still to come
}

func NewServer(cfg Config, deps flows.Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		results: make(chan Result, 1),
		active:  make(map[*flows.Callback]struct{}),
	}
}

// Handler returns the router; exposed for tests
func (s *Server) Handler() http.Handler {
	limit := middlewareCustom.DefaultAuthRateLimit()
	if s.cfg.RateLimit > 0 {
		limit.RequestsPerMinute = s.cfg.RateLimit
	}
	limit.OnLimit = middlewareCustom.PlainTextLimit

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: s.cfg.Env, NoStore: true}))
	router.Use(middlewareCustom.SecureLogger(s.logger))
	router.Use(middleware.Recoverer)

	router.With(middlewareCustom.RateLimitByIP(limit)).Get(Path, s.handleCallback)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})
	return router
}

// Results delivers the outcome of the first redirect. Later redirects are
// still handled but their outcomes are dropped when nobody is reading.
func (s *Server) Results() <-chan Result {
	return s.results
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errors.New("callback server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("callback server listening", slog.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server error", slog.Any("error", err))
		}
	}()
	return nil
}

// URL is the redirect target to register with the backend
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := s.cfg.Addr
	if s.listener != nil {
		addr = s.listener.Addr().String()
	}
	return "http://" + addr + Path
}

// Shutdown stops the server and cancels pending dashboard navigations
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	active := s.active
	s.active = make(map[*flows.Callback]struct{})
	s.mu.Unlock()

	for cb := range active {
		cb.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) release(cb *flows.Callback) {
	s.mu.Lock()
	delete(s.active, cb)
	s.mu.Unlock()
}

// pending reports how many callbacks still wait to navigate
func (s *Server) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	// every callback navigates exactly once; after that it holds nothing to cancel
	var cb *flows.Callback
	deps := s.deps
	deps.Nav = flows.NavigatorFunc(func(route string) {
		if s.deps.Nav != nil {
			s.deps.Nav.Navigate(route)
		}
		s.release(cb)
	})
	cb = flows.NewCallback(deps)

	s.mu.Lock()
	s.active[cb] = struct{}{}
	s.mu.Unlock()

	// the browser closing the tab must not abort persisting the session
	outcome, err := cb.Handle(context.WithoutCancel(r.Context()), r.URL.Query())

	select {
	case s.results <- Result{Outcome: outcome, Err: err}:
	default:
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	switch outcome {
	case flows.CallbackSignedIn:
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Sign-in complete. You can close this window and return to the terminal.")
	case flows.CallbackMalformedUser:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "Sign-in failed: the account information sent by the server was invalid.")
	default:
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintln(w, "Sign-in failed. Please try again from the terminal.")
	}
}
