// Package http exposes the REST API: authentication, transaction and
// category CRUD, analytics, and user administration.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finledger/internal/auth"
	"finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/services"
)

type ctxKey int

const identityKey ctxKey = 0

// identityFrom returns the authenticated caller, or nil on public routes.
func identityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

type Server struct {
	http.Server

	authService        *services.AuthService
	transactionService *services.TransactionService
	categoryService    *services.CategoryService
	analyticsService   *services.AnalyticsService
	userService        *services.UserService

	limiter      *ratelimit.Limiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(
	addr string,
	authSvc *services.AuthService,
	txnSvc *services.TransactionService,
	catSvc *services.CategoryService,
	analyticsSvc *services.AnalyticsService,
	userSvc *services.UserService,
	limiter *ratelimit.Limiter,
	logger *log.Logger,
) *Server {
	s := &Server{
		authService:        authSvc,
		transactionService: txnSvc,
		categoryService:    catSvc,
		analyticsService:   analyticsSvc,
		userService:        userSvc,
		limiter:            limiter,
		logger:             logger.WithComponent(log.ComponentHTTP),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.Handle("POST /auth/register", s.public(s.handleRegister))
	mux.Handle("POST /auth/login", s.public(s.handleLogin))

	mux.Handle("GET /transactions", s.protected(s.handleListTransactions))
	mux.Handle("POST /transactions", s.protected(s.handleCreateTransaction))
	mux.Handle("GET /transactions/stats", s.protected(s.handleTransactionStats))
	mux.Handle("GET /transactions/{id}", s.protected(s.handleGetTransaction))
	mux.Handle("PUT /transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.Handle("DELETE /transactions/{id}", s.protected(s.handleDeleteTransaction))

	mux.Handle("GET /categories", s.protected(s.handleListCategories))
	mux.Handle("POST /categories", s.protected(s.handleCreateCategory))
	mux.Handle("PUT /categories/{id}", s.protected(s.handleUpdateCategory))
	mux.Handle("DELETE /categories/{id}", s.protected(s.handleDeleteCategory))

	mux.Handle("GET /users/me", s.protected(s.handleListUsers))
	mux.Handle("PUT /users/me/{id}", s.protected(s.handleUpdateUserRole))
	mux.Handle("DELETE /users/me/{id}", s.protected(s.handleDeleteUser))

	mux.Handle("GET /analytics/chart", s.protected(s.handleAnalyticsChart))

	s.Server = http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// public applies the base pipeline without authentication.
func (s *Server) public(next http.HandlerFunc) http.Handler {
	return s.withObservability(s.withRateLimit(next))
}

// protected applies the full pipeline: observability, rate limiting, then
// bearer-token authentication.
func (s *Server) protected(next http.HandlerFunc) http.Handler {
	return s.withObservability(s.withRateLimit(s.withAuth(next)))
}

// withObservability adds security headers, a request ID, and request
// logging around the handler.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := generateRequestID()
		ip := clientIP(r)
		ctx := r.Context()

		s.logger.InfoContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, ip,
			log.FieldUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, ip)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, clientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Message: "rate limit exceeded"})
	})(next)
}

// withAuth resolves the bearer token into a caller identity and stores it
// in the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "missing bearer token"})
			return
		}
		identity, err := s.authService.Resolve(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next(w, r.WithContext(ctx))
	})
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
