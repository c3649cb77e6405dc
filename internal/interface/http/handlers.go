package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/pkg/logger"
)

// DefaultPaymentMethod is used when a purchase names no method.
const DefaultPaymentMethod = "card"

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.deps.Engine.Ready() {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "catalog not loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": s.Uptime().String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG & CART
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListCourses(w http.ResponseWriter, _ *http.Request) {
	writeJSONList(w, toCourseViews(s.deps.Engine.Courses()))
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	c := s.deps.Engine.Course(r.PathValue("id"))
	if c == nil {
		writeDomainError(w, shared.ErrCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toCourseView(c))
}

func (s *Server) handleGetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toCartView(s.deps.Engine.Cart(), s.deps.Engine.CartTotal()))
}

type addToCartRequest struct {
	CourseID string `json:"course_id"`
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil || req.CourseID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "course_id is required")
		return
	}

	c := s.deps.Engine.Course(req.CourseID)
	if c == nil {
		writeDomainError(w, shared.ErrCourseNotFound)
		return
	}
	if userID := s.deps.Engine.CurrentUserID(); userID != "" && s.deps.Engine.IsEnrolled(c.ID, userID) {
		writeDomainError(w, shared.ErrAlreadyEnrolled)
		return
	}

	status := http.StatusOK
	if s.deps.Engine.AddToCart(*c) {
		status = http.StatusCreated
	}
	writeJSON(w, status, toCartView(s.deps.Engine.Cart(), s.deps.Engine.CartTotal()))
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	s.deps.Engine.RemoveFromCart(r.PathValue("courseID"))
	writeJSON(w, http.StatusOK, toCartView(s.deps.Engine.Cart(), s.deps.Engine.CartTotal()))
}

func (s *Server) handleClearCart(w http.ResponseWriter, _ *http.Request) {
	s.deps.Engine.ClearCart()
	writeJSON(w, http.StatusOK, toCartView(nil, decimal.Zero))
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type checkoutFailure struct {
	CourseID string `json:"course_id"`
	Error    string `json:"error"`
}

type checkoutResult struct {
	Enrollments []enrollmentView  `json:"enrollments"`
	Payments    []paymentView     `json:"payments"`
	Failed      []checkoutFailure `json:"failed"`
}

// handleCheckout buys every cart item at its snapshot price. Items that
// enroll successfully leave the cart, as do items the user already owns;
// those are reported as failed without a charge. Other failures stay in it.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	method := paymentMethod(req.PaymentMethod)

	items := s.deps.Engine.Cart()
	if len(items) == 0 {
		writeJSONError(w, http.StatusUnprocessableEntity, "empty_cart", "cart is empty")
		return
	}

	result := checkoutResult{
		Enrollments: []enrollmentView{},
		Payments:    []paymentView{},
		Failed:      []checkoutFailure{},
	}
	for _, item := range items {
		p, en, err := s.purchase(r.Context(), item.CourseID, userID, item.Course.Price, method)
		if err != nil {
			if errors.Is(err, shared.ErrAlreadyEnrolled) {
				s.deps.Engine.RemoveFromCart(item.CourseID)
			}
			result.Failed = append(result.Failed, checkoutFailure{CourseID: item.CourseID, Error: err.Error()})
			continue
		}
		result.Payments = append(result.Payments, toPaymentView(&p))
		result.Enrollments = append(result.Enrollments, toEnrollmentView(en))
	}

	status := http.StatusOK
	if len(result.Failed) == len(items) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENTS & ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

type paymentRequest struct {
	CourseID      string           `json:"course_id"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}

	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil || req.CourseID == "" || req.Amount == nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "course_id and amount are required")
		return
	}

	p := s.deps.Engine.ProcessPayment(r.Context(), req.CourseID, userID, *req.Amount, paymentMethod(req.PaymentMethod))
	writeJSON(w, http.StatusCreated, toPaymentView(&p))
}

type purchaseRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
}

type purchaseResponse struct {
	Payment    paymentView    `json:"payment"`
	Enrollment enrollmentView `json:"enrollment"`
}

// handlePurchase pays for a course and enrolls the current user. The amount
// defaults to the listed price.
func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	courseID := r.PathValue("id")

	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	c := s.deps.Engine.Course(courseID)
	if c == nil {
		writeDomainError(w, shared.ErrCourseNotFound)
		return
	}
	amount := c.Price
	if req.Amount != nil {
		amount = *req.Amount
	}

	p, en, err := s.purchase(r.Context(), courseID, userID, amount, paymentMethod(req.PaymentMethod))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchaseResponse{
		Payment:    toPaymentView(&p),
		Enrollment: toEnrollmentView(en),
	})
}

// purchase charges and enrolls. The course must exist and the user must not
// own it yet; both are checked before any payment is taken.
func (s *Server) purchase(ctx context.Context, courseID, userID string, amount decimal.Decimal, method string) (payment.Payment, *enrollment.Enrollment, error) {
	unlock := s.purchases.Lock(enrollment.Key{UserID: userID, CourseID: courseID}.String())
	defer unlock()

	if s.deps.Engine.Course(courseID) == nil {
		return payment.Payment{}, nil, shared.ErrCourseNotFound
	}
	if s.deps.Engine.IsEnrolled(courseID, userID) {
		return payment.Payment{}, nil, shared.ErrAlreadyEnrolled
	}

	p := s.deps.Engine.ProcessPayment(ctx, courseID, userID, amount, method)
	en, err := s.deps.Engine.EnrollInCourse(ctx, courseID, userID, p)
	if err != nil {
		logger.FromContext(ctx).Warn("enrollment after payment failed",
			logger.UserID(userID),
			logger.CourseID(courseID),
			logger.String("payment_id", p.ID),
			logger.Err(err),
		)
		return p, nil, err
	}
	return p, en, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	courseID := r.PathValue("id")

	s.deps.Engine.UpdateProgress(r.Context(), courseID, userID, r.PathValue("lessonID"))

	en := s.deps.Engine.GetEnrollment(courseID, userID)
	if en == nil {
		writeDomainError(w, shared.ErrEnrollmentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentView(en))
}

func (s *Server) handleCompleteCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}

	cert := s.deps.Engine.CompleteCourse(r.Context(), r.PathValue("id"), userID)
	if cert == nil {
		writeDomainError(w, shared.ErrNotEligible)
		return
	}
	writeJSON(w, http.StatusOK, toCertificateView(cert))
}

// ══════════════════════════════════════════════════════════════════════════════
// CURRENT USER
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleMyCourses(w http.ResponseWriter, _ *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	writeJSONList(w, toCourseViews(s.deps.Engine.GetEnrolledCourses(userID)))
}

func (s *Server) handleMyEnrollments(w http.ResponseWriter, _ *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	list := s.deps.Engine.Enrollments(userID)
	views := make([]enrollmentView, 0, len(list))
	for _, en := range list {
		views = append(views, toEnrollmentView(en))
	}
	writeJSONList(w, views)
}

func (s *Server) handleMyEnrollment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	en := s.deps.Engine.GetEnrollment(r.PathValue("courseID"), userID)
	if en == nil {
		writeDomainError(w, shared.ErrEnrollmentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toEnrollmentView(en))
}

func (s *Server) handleMyCertificates(w http.ResponseWriter, _ *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	list := s.deps.Engine.Certificates(userID)
	views := make([]certificateView, 0, len(list))
	for _, c := range list {
		views = append(views, toCertificateView(c))
	}
	writeJSONList(w, views)
}

func (s *Server) handleMyPayments(w http.ResponseWriter, _ *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	list := s.deps.Engine.Payments(userID)
	views := make([]paymentView, 0, len(list))
	for _, p := range list {
		views = append(views, toPaymentView(p))
	}
	writeJSONList(w, views)
}

func (s *Server) handleMyAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w)
	if !ok {
		return
	}
	if s.deps.Achievements == nil {
		writeJSONList(w, []achievementView{})
		return
	}

	list, err := s.deps.Achievements.ListByUser(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list achievements", logger.UserID(userID), logger.Err(err))
		writeDomainError(w, err)
		return
	}
	writeJSONList(w, toAchievementViews(list))
}

// handleReload re-runs initialization, optionally under a new session.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	if sessionID := r.Header.Get(s.config.SessionHeader); sessionID != "" && s.deps.WithSession != nil {
		ctx = s.deps.WithSession(ctx, sessionID)
	}

	start := time.Now()
	s.deps.Engine.Load(ctx)

	writeJSON(w, http.StatusOK, map[string]any{
		"ready":   s.deps.Engine.Ready(),
		"user_id": s.deps.Engine.CurrentUserID(),
		"courses": len(s.deps.Engine.Courses()),
		"took":    time.Since(start).String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MODERATION
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handlePublishCourse(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Engine.PublishCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCourseView(c))
}

func (s *Server) handleApproveCourse(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Engine.ApproveCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCourseView(c))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectCourse(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil || req.Reason == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "reason is required")
		return
	}

	c, err := s.deps.Engine.RejectCourse(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCourseView(c))
}

func (s *Server) handleEventMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.deps.EventBus == nil || s.deps.EventBus.Metrics() == nil {
		writeJSONError(w, http.StatusNotFound, "not_configured", "event bus metrics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.EventBus.Metrics().Snapshot())
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// requireUser writes 401 when the engine has no signed-in user.
func (s *Server) requireUser(w http.ResponseWriter) (string, bool) {
	userID := s.deps.Engine.CurrentUserID()
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "no signed-in user")
		return "", false
	}
	return userID, true
}

func paymentMethod(m string) string {
	if m == "" {
		return DefaultPaymentMethod
	}
	return m
}
