package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anikets/bachatbuddy/internal/auth"
	"github.com/anikets/bachatbuddy/internal/savings"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const userIDKey contextKey = "user_id"

// userID extracts the authenticated user ID from the context.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Server handles HTTP requests for the savings API.
type Server struct {
	service       *savings.Service
	authenticator *auth.PasswordAuthenticator
	tokens        *auth.TokenManager
	metrics       *Metrics
	mux           *http.ServeMux
}

// NewServer creates a new Server with a default mux.
func NewServer(service *savings.Service, authenticator *auth.PasswordAuthenticator, tokens *auth.TokenManager) *Server {
	return NewServerWithMux(service, authenticator, tokens, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing.
func NewServerWithMux(service *savings.Service, authenticator *auth.PasswordAuthenticator, tokens *auth.TokenManager, mux *http.ServeMux) *Server {
	s := &Server{
		service:       service,
		authenticator: authenticator,
		tokens:        tokens,
		metrics:       NewMetrics(),
		mux:           mux,
	}
	s.registerRoutes()
	return s
}

// requireAuth validates the bearer token and puts the user ID on the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			jsonError(w, auth.ErrMissingToken.Error(), http.StatusUnauthorized)
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			jsonError(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := s.tokens.Validate(parts[1])
		if err != nil {
			jsonError(w, auth.ErrInvalidToken.Error(), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next(w, r.WithContext(ctx))
	}
}

// corsMiddleware adds CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux.
// Routes must be registered from most specific to least specific.
func (s *Server) registerRoutes() {
	// Auth endpoints are the only unauthenticated API surface
	s.mux.HandleFunc("POST /api/auth/register", s.metrics.instrument("/api/auth/register", s.handleRegister))
	s.mux.HandleFunc("POST /api/auth/login", s.metrics.instrument("/api/auth/login", s.handleLogin))

	// Accrual and search
	s.mux.HandleFunc("GET /api/stats", s.metrics.instrument("/api/stats", s.requireAuth(s.handleStats)))
	s.mux.HandleFunc("POST /api/searches", s.metrics.instrument("/api/searches", s.requireAuth(s.handleRecordSearch)))
	s.mux.HandleFunc("GET /api/prices", s.metrics.instrument("/api/prices", s.requireAuth(s.handleSearchPrices)))
	s.mux.HandleFunc("POST /api/prices", s.metrics.instrument("/api/prices", s.requireAuth(s.handleSetPrice)))

	// Bills (most specific paths first)
	s.mux.HandleFunc("POST /api/bills/extract", s.metrics.instrument("/api/bills/extract", s.requireAuth(s.handleExtractBill)))
	s.mux.HandleFunc("DELETE /api/bills/{id}", s.metrics.instrument("/api/bills/{id}", s.requireAuth(s.handleDeleteBill)))
	s.mux.HandleFunc("GET /api/bills", s.metrics.instrument("/api/bills", s.requireAuth(s.handleListBills)))
	s.mux.HandleFunc("POST /api/bills", s.metrics.instrument("/api/bills", s.requireAuth(s.handleConfirmBill)))

	// Shops
	s.mux.HandleFunc("GET /api/shops/nearby", s.metrics.instrument("/api/shops/nearby", s.requireAuth(s.handleNearbyShops)))
	s.mux.HandleFunc("GET /api/shops", s.metrics.instrument("/api/shops", s.requireAuth(s.handleListShops)))

	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
