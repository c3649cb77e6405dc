package shared

import "time"

// EventType represents the type of domain event.
type EventType string

// Domain event types. Workflows publish them after the authoritative
// persistence response has been folded into local state.
const (
	// Enrollment events
	EventEnrollmentCreated EventType = "enrollment.created"
	EventLessonCompleted   EventType = "enrollment.lesson_completed"
	EventCourseCompleted   EventType = "enrollment.course_completed"

	// Certificate events
	EventCertificateIssued EventType = "certificate.issued"

	// Payment events
	EventPaymentProcessed EventType = "payment.processed"

	// Course events
	EventCourseModerated EventType = "course.moderated"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted when an enrollment has been persisted.
type EnrollmentCreatedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id"`
	EnrollmentID string `json:"enrollment_id"`
	PaymentID    string `json:"payment_id"`
	AmountPaid   string `json:"amount_paid"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"course_id":     e.CourseID,
		"enrollment_id": e.EnrollmentID,
		"payment_id":    e.PaymentID,
		"amount_paid":   e.AmountPaid,
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(userID, courseID, enrollmentID, paymentID, amountPaid string) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentCreated, userID),
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: enrollmentID,
		PaymentID:    paymentID,
		AmountPaid:   amountPaid,
	}
}

// LessonCompletedEvent is emitted when a new lesson has been added to an
// enrollment's completed set and the progress was persisted.
type LessonCompletedEvent struct {
	BaseEvent
	UserID         string `json:"user_id"`
	CourseID       string `json:"course_id"`
	LessonID       string `json:"lesson_id"`
	CompletedCount int    `json:"completed_count"`
	Progress       int    `json:"progress"`
}

// Payload implements Event interface.
func (e LessonCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":         e.UserID,
		"course_id":       e.CourseID,
		"lesson_id":       e.LessonID,
		"completed_count": e.CompletedCount,
		"progress":        e.Progress,
	}
}

// IsFirstLesson reports whether this was the first lesson of the enrollment.
func (e LessonCompletedEvent) IsFirstLesson() bool {
	return e.CompletedCount == 1
}

// NewLessonCompletedEvent creates a new LessonCompletedEvent.
func NewLessonCompletedEvent(userID, courseID, lessonID string, completedCount, progress int) LessonCompletedEvent {
	return LessonCompletedEvent{
		BaseEvent:      NewBaseEvent(EventLessonCompleted, userID),
		UserID:         userID,
		CourseID:       courseID,
		LessonID:       lessonID,
		CompletedCount: completedCount,
		Progress:       progress,
	}
}

// CourseCompletedEvent is emitted when progress reaches 100.
type CourseCompletedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	CourseID     string `json:"course_id"`
	EnrollmentID string `json:"enrollment_id"`
}

// Payload implements Event interface.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"course_id":     e.CourseID,
		"enrollment_id": e.EnrollmentID,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(userID, courseID, enrollmentID string) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:    NewBaseEvent(EventCourseCompleted, userID),
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: enrollmentID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateIssuedEvent is emitted after a certificate has been persisted.
type CertificateIssuedEvent struct {
	BaseEvent
	UserID           string `json:"user_id"`
	CourseID         string `json:"course_id"`
	CertificateID    string `json:"certificate_id"`
	VerificationCode string `json:"verification_code"`
}

// Payload implements Event interface.
func (e CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":           e.UserID,
		"course_id":         e.CourseID,
		"certificate_id":    e.CertificateID,
		"verification_code": e.VerificationCode,
	}
}

// NewCertificateIssuedEvent creates a new CertificateIssuedEvent.
func NewCertificateIssuedEvent(userID, courseID, certificateID, code string) CertificateIssuedEvent {
	return CertificateIssuedEvent{
		BaseEvent:        NewBaseEvent(EventCertificateIssued, userID),
		UserID:           userID,
		CourseID:         courseID,
		CertificateID:    certificateID,
		VerificationCode: code,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Payment Events
// ═══════════════════════════════════════════════════════════════════════════

// PaymentProcessedEvent is emitted when a payment has been computed locally.
type PaymentProcessedEvent struct {
	BaseEvent
	UserID        string `json:"user_id"`
	CourseID      string `json:"course_id"`
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
}

// Payload implements Event interface.
func (e PaymentProcessedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":        e.UserID,
		"course_id":      e.CourseID,
		"payment_id":     e.PaymentID,
		"transaction_id": e.TransactionID,
		"amount":         e.Amount,
	}
}

// NewPaymentProcessedEvent creates a new PaymentProcessedEvent.
func NewPaymentProcessedEvent(userID, courseID, paymentID, transactionID, amount string) PaymentProcessedEvent {
	return PaymentProcessedEvent{
		BaseEvent:     NewBaseEvent(EventPaymentProcessed, userID),
		UserID:        userID,
		CourseID:      courseID,
		PaymentID:     paymentID,
		TransactionID: transactionID,
		Amount:        amount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseModeratedEvent is emitted after a moderation transition.
type CourseModeratedEvent struct {
	BaseEvent
	CourseID string `json:"course_id"`
	State    string `json:"state"`
	Reason   string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e CourseModeratedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id": e.CourseID,
		"state":     e.State,
		"reason":    e.Reason,
	}
}

// NewCourseModeratedEvent creates a new CourseModeratedEvent.
func NewCourseModeratedEvent(courseID, state, reason string) CourseModeratedEvent {
	return CourseModeratedEvent{
		BaseEvent: NewBaseEvent(EventCourseModerated, courseID),
		CourseID:  courseID,
		State:     state,
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus ports
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
