// Package engine implements the enrollment and progress workflow engine.
//
// The Engine owns the session's in-memory view of courses, cart, enrollments,
// certificates and payments. Workflows validate against that view, call the
// durable collaborators without holding the state lock and fold the
// authoritative response back in a single critical section afterwards.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/certificate"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/pkg/keylock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds engine settings.
type Config struct {
	// CertificatePrefix is the first segment of verification codes.
	CertificatePrefix string

	// CertificateGrade is stamped on every issued certificate.
	CertificateGrade string

	// BackgroundTimeout bounds fire-and-forget writes such as the payment mirror.
	BackgroundTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CertificatePrefix: "LH",
		CertificateGrade:  certificate.DefaultGrade,
		BackgroundTimeout: 10 * time.Second,
	}
}

// Deps are the collaborators of the engine. Enrollments, Payments and
// Certificates are required; the rest are optional.
type Deps struct {
	Directory    CourseDirectory
	Enrollments  EnrollmentStore
	Payments     PaymentStore
	Certificates CertificateStore
	Identity     IdentityProvider
	Moderation   ModerationStore
	Sequence     SequenceSource
	Events       shared.EventPublisher
	Logger       *slog.Logger
	Now          func() time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// ENGINE
// ══════════════════════════════════════════════════════════════════════════════

// Engine is the session state container. It is safe for concurrent use.
type Engine struct {
	cfg  Config
	deps Deps

	normalizer *normalize.Normalizer
	logger     *slog.Logger
	now        func() time.Time

	// inflight collapses concurrent workflow calls for the same key.
	inflight singleflight.Group
	// progress serializes read-persist-fold per enrollment.
	progress keylock.Map
	// background tracks fire-and-forget writes.
	background sync.WaitGroup

	mu           sync.RWMutex
	ready        bool
	userID       string
	courses      []*course.Course
	cart         course.Cart
	enrollments  []*enrollment.Enrollment
	certificates []*certificate.Certificate
	payments     []*payment.Payment
}

// New creates an Engine with empty state. Call Load to populate it.
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Enrollments == nil || deps.Payments == nil || deps.Certificates == nil {
		return nil, errors.New("engine: enrollment, payment and certificate stores are required")
	}

	def := DefaultConfig()
	if cfg.CertificatePrefix == "" {
		cfg.CertificatePrefix = def.CertificatePrefix
	}
	if cfg.CertificateGrade == "" {
		cfg.CertificateGrade = def.CertificateGrade
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = def.BackgroundTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		cfg:        cfg,
		deps:       deps,
		normalizer: normalize.New(now),
		logger:     logger.With("component", "engine"),
		now:        now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// INITIALIZATION
// ══════════════════════════════════════════════════════════════════════════════

// Load rebuilds the state wholesale from the collaborators.
//
// Courses come from the directory. When the identity provider reports a
// signed-in user, that user's enrollments, certificates and payments are
// fetched concurrently. A failing collaborator is logged and leaves its
// collection empty; Load itself never fails and the engine is ready after it
// returns. The cart is session-local and survives a reload.
func (e *Engine) Load(ctx context.Context) {
	start := time.Now()

	var courses []*course.Course
	if e.deps.Directory != nil {
		raws, err := e.deps.Directory.ListPublishedCourses(ctx)
		if err != nil {
			e.logger.Error("failed to load courses", "error", err)
		} else {
			courses = e.normalizer.Courses(raws)
		}
	}

	userID := e.currentUser(ctx)

	var (
		enrollments  []*enrollment.Enrollment
		certificates []*certificate.Certificate
		payments     []*payment.Payment
	)
	if userID != "" {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			raws, err := e.deps.Enrollments.ListByUser(gctx, userID)
			if err != nil {
				e.logger.Error("failed to load enrollments", "user_id", userID, "error", err)
				return nil
			}
			enrollments = e.normalizer.Enrollments(raws)
			return nil
		})
		g.Go(func() error {
			raws, err := e.deps.Certificates.ListByUser(gctx, userID)
			if err != nil {
				e.logger.Error("failed to load certificates", "user_id", userID, "error", err)
				return nil
			}
			certificates = e.normalizer.Certificates(raws)
			return nil
		})
		g.Go(func() error {
			raws, err := e.deps.Payments.ListByUser(gctx, userID)
			if err != nil {
				e.logger.Error("failed to load payments", "user_id", userID, "error", err)
				return nil
			}
			payments = e.normalizer.Payments(raws)
			return nil
		})
		_ = g.Wait()
	}

	e.mu.Lock()
	e.userID = userID
	e.courses = courses
	e.enrollments = enrollments
	e.certificates = certificates
	e.payments = payments
	e.ready = true
	e.mu.Unlock()

	e.logger.Info("engine state loaded",
		"user_id", userID,
		"courses", len(courses),
		"enrollments", len(enrollments),
		"certificates", len(certificates),
		"payments", len(payments),
		"duration", time.Since(start),
	)
}

func (e *Engine) currentUser(ctx context.Context) string {
	if e.deps.Identity == nil {
		return ""
	}
	id, ok, err := e.deps.Identity.CurrentUser(ctx)
	if err != nil {
		e.logger.Warn("failed to resolve current user", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return id
}

// Ready reports whether Load has completed.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// CurrentUserID returns the user resolved during Load, or "".
func (e *Engine) CurrentUserID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID
}

// Close waits for outstanding background writes.
func (e *Engine) Close() {
	e.background.Wait()
}

// ══════════════════════════════════════════════════════════════════════════════
// INTERNAL HELPERS (callers hold e.mu)
// ══════════════════════════════════════════════════════════════════════════════

func (e *Engine) findCourse(courseID string) *course.Course {
	for _, c := range e.courses {
		if c.ID == courseID {
			return c
		}
	}
	return nil
}

func (e *Engine) findEnrollment(courseID, userID string) *enrollment.Enrollment {
	for _, en := range e.enrollments {
		if en.Matches(userID, courseID) {
			return en
		}
	}
	return nil
}

func (e *Engine) findCertificate(courseID, userID, certificateID string) *certificate.Certificate {
	for _, c := range e.certificates {
		if certificateID != "" && c.ID == certificateID {
			return c
		}
		if c.UserID == userID && c.CourseID == courseID {
			return c
		}
	}
	return nil
}

// publish hands an event to the bus. Delivery failures are logged only.
func (e *Engine) publish(event shared.Event) {
	if e.deps.Events == nil {
		return
	}
	if err := e.deps.Events.Publish(event); err != nil {
		e.logger.Warn("failed to publish event",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"error", err,
		)
	}
}
