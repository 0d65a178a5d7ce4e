package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/consolerelay/console-relay/internal/biz/usecase"
)

// Server serves the relay HTTP API
type Server struct {
	console *usecase.ConsoleUsecase
	origins *usecase.OriginUsecase
	pull    *usecase.PullUsecase // nil in push mode

	staticDir string
	logger    *slog.Logger
	now       func() time.Time

	server *http.Server
	addr   string
}

// NewServer creates a new API server; pull may be nil
func NewServer(
	console *usecase.ConsoleUsecase,
	origins *usecase.OriginUsecase,
	pull *usecase.PullUsecase,
	staticDir string,
	addr string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		console:   console,
		origins:   origins,
		pull:      pull,
		staticDir: staticDir,
		logger:    logger.With("component", "api"),
		now:       time.Now,
		addr:      addr,
	}
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Messages
	mux.HandleFunc("/api/console-data", s.handleConsoleData)

	// Origins
	mux.HandleFunc("/api/origins", s.handleOrigins)
	mux.HandleFunc("/api/origins/check-all", s.handleCheckAll)

	// Upstream auth (pull mode)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/refresh-token", s.handleRefreshToken)

	// Frontend
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	mux.HandleFunc("/", s.handleRoot)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return withCORS(mux)
}

// Start starts the HTTP server; it returns nil after Stop
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr, "pull", s.pull != nil)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// withCORS allows any origin, answering preflight requests directly
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
