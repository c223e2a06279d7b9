package http

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"expensetracker/internal/auth"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxHeaderBytes = 64 << 10
	readyTimeout   = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the server's transport settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	// AuthRateLimit is requests per minute per client on /register and
	// /login. Zero disables limiting.
	AuthRateLimit int
	// StaticDir, when set, serves a built client with index.html fallback.
	StaticDir string
	Logger    *log.Logger
}

type Server struct {
	http.Server

	auth     *auth.Service
	expenses *services.ExpenseService
	store    Pinger
	logger   *log.Logger

	static      string
	tracer      *trace.Middleware
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, authSvc *auth.Service, expenses *services.ExpenseService, store Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    maxHeaderBytes,
		},
		auth:     authSvc,
		expenses: expenses,
		store:    store,
		logger:   logger.WithComponent(log.ComponentHTTP),
		static:   cfg.StaticDir,
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	if cfg.AuthRateLimit > 0 {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.AuthRateLimit})
	}

	s.Handler = s.routes(cfg.AllowedOrigins)
	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	}))
	r.Use(s.recoverer)
	r.Use(middleware.RequestSize(maxBodyBytes))
	r.Use(middleware.StripSlashes)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		if s.rateLimiter != nil {
			r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))
		}
		r.Use(security.NoStore)
		r.Use(log.ComponentMiddleware(log.ComponentAuth))
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
	})

	r.Route("/expenses", func(r chi.Router) {
		// Group middleware wraps matched routes only, so unknown paths
		// and methods fall through to handleNotFound without a token.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(security.NoStore)
			r.Use(log.ComponentMiddleware(log.ComponentExpense))
			r.Post("/", s.handleCreateExpense)
			r.Get("/", s.handleListExpenses)
			r.Get("/analytics", s.handleAnalytics)
			r.Put("/{id}", s.handleUpdateExpense)
			r.Delete("/{id}", s.handleDeleteExpense)
		})
	})

	return r
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.tracer.GetMetrics()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":        "ok",
		"requests":      m.TotalRequests,
		"server_errors": m.ServerErrors,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if s.store == nil {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	if err := s.store.Ping(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			log.FieldError, err.Error())
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.serveStatic(w, r) {
		return
	}
	writeJSON(w, r, http.StatusNotFound, ErrorBody{Error: "Route not found"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, r, http.StatusTooManyRequests, ErrorBody{Error: "Too many requests"})
}

// serveStatic serves a file from the static directory, falling back to
// index.html so client-side routes resolve. It reports whether it wrote a
// response.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) bool {
	if s.static == "" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		return false
	}

	name := filepath.Join(s.static, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(name); err != nil || info.IsDir() {
		name = filepath.Join(s.static, "index.html")
		if _, err := os.Stat(name); err != nil {
			return false
		}
	}
	http.ServeFile(w, r, name)
	return true
}

// recoverer converts a panic into a generic 500 and logs the value.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Panic in handler",
				"panic", rec,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			writeJSON(w, r, http.StatusInternalServerError, ErrorBody{Error: "Internal server error"})
		}()
		next.ServeHTTP(w, r)
	})
}

// requireAuth resolves the bearer token and stores the user id in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := auth.WithUserID(r.Context(), userID)
		ctx = log.WithContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
