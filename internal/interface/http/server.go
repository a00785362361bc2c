// Package http implements the REST API for the peer-help marketplace. It
// exposes the command and query handlers over JSON, plus health checks and
// administrative endpoints for the event log.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/suilotion/peerhelp-hub/internal/application/command"
	"github.com/suilotion/peerhelp-hub/internal/application/query"
	"github.com/suilotion/peerhelp-hub/internal/infrastructure/external/intra"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds the HTTP server settings.
type Config struct {
	// Addr is the listen address.
	Addr string

	// ReadTimeout bounds reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration

	// IdleTimeout bounds idle keep-alive connections.
	IdleTimeout time.Duration

	// MaxHeaderBytes caps request header size.
	MaxHeaderBytes int

	// RateLimitPerMinute is the per-IP request budget; 0 disables limiting.
	RateLimitPerMinute int

	// AdminTokenHash - bcrypt hash of the admin token. Admin endpoints
	// return 404 when empty.
	AdminTokenHash string
}

// DefaultConfig listens on :8080 with 120 requests per minute per IP.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		RateLimitPerMinute: 120,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// LoginVerifier checks a login against the identity platform before a
// profile is created. Optional; profile creation skips verification when nil.
type LoginVerifier interface {
	VerifyLogin(ctx context.Context, login string) (*intra.VerifiedIdentity, error)
}

// HealthChecker reports backend health for the readiness probe.
type HealthChecker func(ctx context.Context) error

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	CreateProfile  *command.CreateProfileHandler
	CreateRequest  *command.CreateRequestHandler
	VoteDifficulty *command.VoteDifficultyHandler
	CreateOffer    *command.CreateOfferHandler
	AcceptOffer    *command.AcceptOfferHandler
	CompleteHelp   *command.CompleteHelpHandler
	ClaimReward    *command.ClaimRewardHandler

	// Query Handlers (CQRS Read Side)
	GetProfile       *query.GetProfileHandler
	GetRequest       *query.GetRequestHandler
	ListOpenRequests *query.ListOpenRequestsHandler
	GetRegistryStats *query.GetRegistryStatsHandler
	GetEventsSince   *query.GetEventsSinceHandler

	// LoginVerifier verifies external logins on profile creation (optional).
	LoginVerifier LoginVerifier

	// HealthCheck reports backend readiness (optional).
	HealthCheck HealthChecker

	// Logger
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP front of the marketplace.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *logger.Logger

	rateLimiter *rateLimiter

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer wires the routes and middleware but does not listen yet.
func NewServer(config Config, deps Dependencies) *Server {
	s := &Server{
		config: config,
		deps:   deps,
		router: http.NewServeMux(),
		logger: deps.Logger,
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	if config.RateLimitPerMinute > 0 {
		s.rateLimiter = newRateLimiter(config.RateLimitPerMinute, time.Minute)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Addr,
		Handler:        s.buildMiddlewareChain(s.router),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /healthz", s.handleHealth) // Kubernetes alias
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)
	s.router.HandleFunc("GET /", s.handleRoot)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Profiles
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/profiles", s.handleCreateProfile)
	s.router.HandleFunc("GET /api/v1/profiles/{identity}", s.handleGetProfile)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Help Requests & Offers
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/requests", s.handleCreateRequest)
	s.router.HandleFunc("GET /api/v1/requests", s.handleListOpenRequests)
	s.router.HandleFunc("GET /api/v1/requests/{id}", s.handleGetRequest)
	s.router.HandleFunc("POST /api/v1/requests/{id}/votes", s.handleVoteDifficulty)
	s.router.HandleFunc("POST /api/v1/requests/{id}/offers", s.handleCreateOffer)
	s.router.HandleFunc("POST /api/v1/requests/{id}/accept", s.handleAcceptOffer)
	s.router.HandleFunc("POST /api/v1/requests/{id}/claim", s.handleClaimReward)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Matches
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("POST /api/v1/matches/{id}/confirm", s.handleConfirmCompletion)
	s.router.HandleFunc("POST /api/v1/matches/{id}/reject", s.handleRejectCompletion)

	// ─────────────────────────────────────────────────────────────────────────
	// API v1 - Stats
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/stats", s.handleGetStats)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin Endpoints (bcrypt token required)
	// ─────────────────────────────────────────────────────────────────────────
	s.router.Handle("GET /api/v1/admin/events", s.requireAdmin(http.HandlerFunc(s.handleAdminEvents)))
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// buildMiddlewareChain wraps the router. Listed innermost first: request ID,
// then logging, then recovery, then rate limiting on the outside.
func (s *Server) buildMiddlewareChain(handler http.Handler) http.Handler {
	h := s.requestIDMiddleware(handler)
	h = s.loggingMiddleware(h)
	h = s.recoveryMiddleware(h)

	if s.rateLimiter != nil {
		h = s.rateLimitMiddleware(h)
	}

	return h
}

// requestIDMiddleware threads an X-Request-ID through the request and
// response, minting one when the client sent none.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware emits one line per request with status and latency.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		s.logger.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Int64("duration_ms", time.Since(start).Milliseconds()),
			logger.String("ip", getClientIP(r)),
			logger.String("request_id", getRequestID(r.Context())),
		)
	})
}

// recoveryMiddleware turns handler panics into 500 responses.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
					logger.String("request_id", getRequestID(r.Context())),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware rejects clients over their per-IP budget with 429.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin gates admin endpoints behind a bcrypt-hashed token. The token
// arrives as a bearer token; the hash never leaves the config.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminTokenHash == "" {
			// Admin surface disabled entirely; do not reveal its existence.
			writeJSONError(w, http.StatusNotFound, "not_found", "Not found")
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Admin token required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminTokenHash), []byte(token)); err != nil {
			s.logger.Warn("admin auth failed", logger.String("ip", getClientIP(r)))
			writeJSONError(w, http.StatusForbidden, "forbidden", "Invalid admin token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return r.Header.Get("X-Admin-Token")
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens and serves, blocking until shutdown. A clean shutdown
// returns nil.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync runs Start in a goroutine and reports its error on the
// returned channel, which closes when the server stops.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.Start(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Uptime returns how long the server has been serving, zero when stopped.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Addr
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope every endpoint responds with.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON responds with data in the standard envelope.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// writeJSONError responds with an error in the standard envelope.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(JSONResponse{
		Error: &APIError{Code: code, Message: message},
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// responseWriter captures the status code for the logging middleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// getClientIP resolves the client address, preferring proxy headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// getRequestID returns the request ID threaded through the context.
func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func generateRequestID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%1000)
}

// getQueryParamInt reads an integer query parameter, falling back to
// defaultValue when absent or unparseable.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	var result int
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getQueryParamInt64 is getQueryParamInt for int64 values.
func getQueryParamInt64(r *http.Request, key string, defaultValue int64) int64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	var result int64
	if _, err := fmt.Sscanf(value, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getQueryParamBool treats "true", "1", and "yes" as true.
func getQueryParamBool(r *http.Request, key string) bool {
	switch strings.ToLower(r.URL.Query().Get(key)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

// rateLimiter is a sliding-window counter per key. A background loop drops
// keys that have gone quiet so the map does not grow without bound.
type rateLimiter struct {
	mu       sync.RWMutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

// Allow records one request for key and reports whether it fit the window.
func (rl *rateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	valid := prune(rl.requests[key], now.Add(-rl.window))

	if len(valid) >= rl.limit {
		rl.requests[key] = valid
		return false
	}

	rl.requests[key] = append(valid, now)
	return true
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window)
		for key, requests := range rl.requests {
			valid := prune(requests, cutoff)
			if len(valid) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = valid
			}
		}
		rl.mu.Unlock()
	}
}

// prune keeps only timestamps after the cutoff.
func prune(times []time.Time, cutoff time.Time) []time.Time {
	var valid []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
