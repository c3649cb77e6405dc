// Package http exposes the enrollment engine as a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/learnhub/learnhub-engine/internal/domain/achievement"
	"github.com/learnhub/learnhub-engine/internal/domain/certificate"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/internal/infrastructure/messaging"
	"github.com/learnhub/learnhub-engine/internal/interface/http/handlers"
	"github.com/learnhub/learnhub-engine/pkg/keylock"
	"github.com/learnhub/learnhub-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MaxHeaderBytes int
	MaxBodyBytes   int64

	EnableCORS     bool
	AllowedOrigins []string

	// APIKeyHeader and AdminAPIKeys guard the moderation routes. With no
	// keys configured the moderation routes are not mounted.
	APIKeyHeader string
	AdminAPIKeys []string

	// SessionHeader carries the session used by POST /api/v1/session/reload.
	SessionHeader string

	// DisableCheckout leaves POST /api/v1/cart/checkout unmounted.
	DisableCheckout bool

	// RateLimit guards the purchase and progress routes when set.
	RateLimit *handlers.RateLimitConfig
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   64 << 10,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		APIKeyHeader:   "X-API-Key",
		SessionHeader:  "X-Session-ID",
	}
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Engine is the part of the workflow engine the API drives.
type Engine interface {
	Load(ctx context.Context)
	Ready() bool
	CurrentUserID() string

	Courses() []*course.Course
	Course(courseID string) *course.Course
	GetEnrolledCourses(userID string) []*course.Course
	Enrollments(userID string) []*enrollment.Enrollment
	Certificates(userID string) []*certificate.Certificate
	Payments(userID string) []*payment.Payment

	AddToCart(c course.Course) bool
	RemoveFromCart(courseID string)
	ClearCart()
	Cart() []course.CartItem
	CartTotal() decimal.Decimal

	ProcessPayment(ctx context.Context, courseID, userID string, amount decimal.Decimal, method string) payment.Payment
	EnrollInCourse(ctx context.Context, courseID, userID string, p payment.Payment) (*enrollment.Enrollment, error)
	GetEnrollment(courseID, userID string) *enrollment.Enrollment
	IsEnrolled(courseID, userID string) bool
	UpdateProgress(ctx context.Context, courseID, userID, lessonID string)
	CompleteCourse(ctx context.Context, courseID, userID string) *certificate.Certificate

	PublishCourse(ctx context.Context, courseID string) (*course.Course, error)
	ApproveCourse(ctx context.Context, courseID string) (*course.Course, error)
	RejectCourse(ctx context.Context, courseID, reason string) (*course.Course, error)
}

// AchievementLister reads awarded achievements. Optional.
type AchievementLister interface {
	ListByUser(ctx context.Context, userID string) ([]achievement.Achievement, error)
}

// BusMetrics exposes event bus counters. Optional.
type BusMetrics interface {
	Metrics() *messaging.EventBusMetrics
}

// Dependencies contains everything the handlers need.
type Dependencies struct {
	Engine        Engine
	Achievements  AchievementLister
	EventBus      BusMetrics
	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger

	// WithSession attaches a session ID to the reload context. Optional.
	WithSession func(ctx context.Context, sessionID string) context.Context
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	router     *http.ServeMux
	logger     *logger.Logger

	// purchases serializes charge-then-enroll per user and course.
	purchases keylock.Map

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
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
	s.logger = s.logger.With(logger.Component("http"))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           config.Address(),
		Handler:        s.Handler(),
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	chain := []handlers.MiddlewareFunc{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		handlers.SecurityHeadersMiddleware,
	}
	if s.config.EnableCORS {
		chain = append(chain, s.corsMiddleware)
	}
	if s.config.MaxBodyBytes > 0 {
		chain = append(chain, handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}
	return handlers.Chain(s.router, chain...)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /live", s.handleLive)

	// ─────────────────────────────────────────────────────────────────────────
	// Catalog & Cart
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/courses", s.handleListCourses)
	s.router.HandleFunc("GET /api/v1/courses/{id}", s.handleGetCourse)
	s.router.HandleFunc("GET /api/v1/cart", s.handleGetCart)
	s.router.HandleFunc("POST /api/v1/cart", s.handleAddToCart)
	s.router.HandleFunc("DELETE /api/v1/cart", s.handleClearCart)
	s.router.HandleFunc("DELETE /api/v1/cart/{courseID}", s.handleRemoveFromCart)

	// ─────────────────────────────────────────────────────────────────────────
	// Learner workflows (rate limited)
	// ─────────────────────────────────────────────────────────────────────────
	limited := func(h http.HandlerFunc) http.Handler { return h }
	if s.config.RateLimit != nil {
		rl := handlers.NewRateLimiter(*s.config.RateLimit, s.rateLimitKey)
		limited = func(h http.HandlerFunc) http.Handler { return rl.Middleware(h) }
	}
	if !s.config.DisableCheckout {
		s.router.Handle("POST /api/v1/cart/checkout", limited(s.handleCheckout))
	}
	s.router.Handle("POST /api/v1/payments", limited(s.handleProcessPayment))
	s.router.Handle("POST /api/v1/courses/{id}/purchase", limited(s.handlePurchase))
	s.router.Handle("POST /api/v1/courses/{id}/lessons/{lessonID}/complete", limited(s.handleCompleteLesson))
	s.router.Handle("POST /api/v1/courses/{id}/complete", limited(s.handleCompleteCourse))

	// ─────────────────────────────────────────────────────────────────────────
	// Current user
	// ─────────────────────────────────────────────────────────────────────────
	s.router.HandleFunc("GET /api/v1/me/courses", s.handleMyCourses)
	s.router.HandleFunc("GET /api/v1/me/enrollments", s.handleMyEnrollments)
	s.router.HandleFunc("GET /api/v1/me/enrollments/{courseID}", s.handleMyEnrollment)
	s.router.HandleFunc("GET /api/v1/me/certificates", s.handleMyCertificates)
	s.router.HandleFunc("GET /api/v1/me/payments", s.handleMyPayments)
	s.router.HandleFunc("GET /api/v1/me/achievements", s.handleMyAchievements)
	s.router.HandleFunc("POST /api/v1/session/reload", s.handleReload)

	// ─────────────────────────────────────────────────────────────────────────
	// Moderation (API key)
	// ─────────────────────────────────────────────────────────────────────────
	if len(s.config.AdminAPIKeys) > 0 {
		auth := handlers.NewAPIKeyAuth(s.config.APIKeyHeader, s.config.AdminAPIKeys)
		s.router.Handle("POST /api/v1/admin/courses/{id}/publish", auth.Middleware(http.HandlerFunc(s.handlePublishCourse)))
		s.router.Handle("POST /api/v1/admin/courses/{id}/approve", auth.Middleware(http.HandlerFunc(s.handleApproveCourse)))
		s.router.Handle("POST /api/v1/admin/courses/{id}/reject", auth.Middleware(http.HandlerFunc(s.handleRejectCourse)))
	}

	s.router.HandleFunc("GET /api/v1/events/metrics", s.handleEventMetrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// rateLimitKey prefers the session header over the client address.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id := r.Header.Get(s.config.SessionHeader); id != "" {
		return "session:" + id
	}
	return "ip:" + getClientIP(r)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(requestID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.FromContext(r.Context()).Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rw.statusCode),
			logger.Latency(time.Since(start)),
			logger.String("ip", getClientIP(r)),
		)
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					logger.Any("error", err),
					logger.String("stack", string(debug.Stack())),
					logger.String("path", r.URL.Path),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, o := range s.config.AllowedOrigins {
			if o == "*" || o == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID, "+s.config.SessionHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
				break
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start listens and serves until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
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

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse is the envelope of every response.
type JSONResponse struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *APIError     `json:"error,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta:    &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
	})
}

func writeJSONList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeEnvelope(w, http.StatusOK, JSONResponse{
		Success: true,
		Data:    items,
		Meta:    &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1", TotalCount: len(items)},
	})
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message},
		Meta:  &ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDomainError maps the shared error kinds to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrRejectionReasonRequired):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrAlreadyEnrolled):
		writeJSONError(w, http.StatusConflict, "already_enrolled", err.Error())
	case shared.IsPreconditionFailed(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "precondition_failed", err.Error())
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case shared.IsPersistence(err), shared.IsExternalService(err):
		writeJSONError(w, http.StatusBadGateway, "upstream_failure", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER TYPES AND FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const contextKeyRequestID contextKey = "request_id"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
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

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
