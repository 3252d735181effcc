package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/isdmx/reqbox/config"
	"github.com/isdmx/reqbox/history"
	"github.com/isdmx/reqbox/runner"
	"github.com/isdmx/reqbox/sandbox"
)

// Runner runs submissions
type Runner interface {
	Run(ctx context.Context, sub runner.Submission) (*runner.Outcome, error)
	DryRun(ctx context.Context, sub runner.Submission) sandbox.ExecutionResult
}

// History exposes the recorded exchanges
type History interface {
	List() []history.Entry
	Get(id string) (history.Entry, bool)
	Clear()
}

// Server is the REST API surface
type Server struct {
	config  *config.Config
	logger  *zap.Logger
	runner  Runner
	history History
	router  chi.Router

	httpServer *http.Server
	listener   net.Listener
}

// New creates a new Server
func New(cfg *config.Config, logger *zap.Logger, r Runner, h History) *Server {
	s := &Server{
		config:  cfg,
		logger:  logger,
		runner:  r,
		history: h,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.logMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Options("/*", s.optionsHandler)

		r.Post("/request", s.handleRequest)
		r.Post("/script", s.handleScript)
		r.Post("/curl", s.handleCurl)

		r.Get("/history", s.handleListHistory)
		r.Get("/history/{id}", s.handleGetHistory)
		r.Delete("/history", s.handleClearHistory)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start binds the configured port and serves in the background
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddr(), err)
	}
	return s.Serve(ln)
}

// Serve serves on ln in the background
func (s *Server) Serve(ln net.Listener) error {
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
	}

	s.logger.Info("starting API server", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("stopping API server")
	return s.httpServer.Shutdown(ctx)
}
