package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// ─────────────────────────────────────────────────────────────────────────────
// Directory / identity
// ─────────────────────────────────────────────────────────────────────────────

type fakeDirectory struct {
	courses []normalize.RawCourse
	err     error
}

func (d *fakeDirectory) ListPublishedCourses(context.Context) ([]normalize.RawCourse, error) {
	return d.courses, d.err
}

type fakeIdentity struct {
	userID string
	err    error
}

func (i *fakeIdentity) CurrentUser(context.Context) (string, bool, error) {
	return i.userID, i.userID != "", i.err
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrollment store
// ─────────────────────────────────────────────────────────────────────────────

type fakeEnrollmentStore struct {
	mu          sync.Mutex
	existing    []normalize.RawEnrollment
	listErr     error
	createErr   error
	updateErr   error
	createCalls int
	updateCalls int

	// started/release let a test hold Create open; started should be buffered.
	started chan struct{}
	release chan struct{}

	// updateStarted/updateRelease do the same for UpdateProgress.
	updateStarted chan struct{}
	updateRelease chan struct{}
	persisted     map[string][]string
}

func (s *fakeEnrollmentStore) Create(_ context.Context, userID, courseID, paymentID string, amountPaid decimal.Decimal) (normalize.RawEnrollment, error) {
	s.mu.Lock()
	s.createCalls++
	n := s.createCalls
	err := s.createErr
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if err != nil {
		return normalize.RawEnrollment{}, err
	}
	return normalize.RawEnrollment{
		ID:         fmt.Sprintf("enr-%d", n),
		UserID:     userID,
		CourseID:   courseID,
		Progress:   ptr(0),
		PaymentID:  ptr(paymentID),
		AmountPaid: ptr(amountPaid),
		EnrolledAt: ptr(testNow),
	}, nil
}

func (s *fakeEnrollmentStore) UpdateProgress(_ context.Context, enrollmentID string, progress int, completedLessons []string) (normalize.RawEnrollment, error) {
	if s.updateStarted != nil {
		s.updateStarted <- struct{}{}
	}
	if s.updateRelease != nil {
		<-s.updateRelease
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return normalize.RawEnrollment{}, s.updateErr
	}
	if s.persisted == nil {
		s.persisted = make(map[string][]string)
	}
	s.persisted[enrollmentID] = append([]string(nil), completedLessons...)
	return normalize.RawEnrollment{
		ID:               enrollmentID,
		Progress:         ptr(progress),
		CompletedLessons: append([]string(nil), completedLessons...),
	}, nil
}

func (s *fakeEnrollmentStore) ListByUser(_ context.Context, userID string) ([]normalize.RawEnrollment, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []normalize.RawEnrollment
	for _, r := range s.existing {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeEnrollmentStore) persistedLessons(enrollmentID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persisted[enrollmentID]
}

func (s *fakeEnrollmentStore) counts() (creates, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls, s.updateCalls
}

// ─────────────────────────────────────────────────────────────────────────────
// Payment store
// ─────────────────────────────────────────────────────────────────────────────

type fakePaymentStore struct {
	mu       sync.Mutex
	existing []normalize.RawPayment
	listErr  error
	err      error
	created  []payment.Payment
}

func (s *fakePaymentStore) Create(_ context.Context, p payment.Payment) (normalize.RawPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, p)
	if s.err != nil {
		return normalize.RawPayment{}, s.err
	}
	return normalize.RawPayment{ID: p.ID, UserID: p.UserID, CourseID: p.CourseID, Amount: &p.Amount, Method: &p.Method, TransactionID: &p.TransactionID}, nil
}

func (s *fakePaymentStore) createdPayments() []payment.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.Payment(nil), s.created...)
}

func (s *fakePaymentStore) ListByUser(context.Context, string) ([]normalize.RawPayment, error) {
	return s.existing, s.listErr
}

func (s *fakePaymentStore) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// ─────────────────────────────────────────────────────────────────────────────
// Certificate store / sequence
// ─────────────────────────────────────────────────────────────────────────────

type fakeCertificateStore struct {
	mu       sync.Mutex
	existing []normalize.RawCertificate
	listErr  error
	err      error
	inserted []CertificateRecord
}

func (s *fakeCertificateStore) Insert(_ context.Context, rec CertificateRecord) (normalize.RawCertificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return normalize.RawCertificate{}, s.err
	}
	s.inserted = append(s.inserted, rec)
	return normalize.RawCertificate{
		ID:               fmt.Sprintf("cert-%d", len(s.inserted)),
		UserID:           rec.UserID,
		CourseID:         rec.CourseID,
		CourseName:       ptr(rec.CourseName),
		InstructorName:   ptr(rec.InstructorName),
		VerificationCode: rec.VerificationCode,
		Grade:            ptr(rec.Grade),
		CompletionDate:   ptr(rec.CompletionDate),
	}, nil
}

func (s *fakeCertificateStore) ListByUser(context.Context, string) ([]normalize.RawCertificate, error) {
	return s.existing, s.listErr
}

func (s *fakeCertificateStore) insertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

type fakeSequence struct {
	next int
	err  error
}

func (s *fakeSequence) NextCertificateSequence(context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next++
	return s.next, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Moderation store / events
// ─────────────────────────────────────────────────────────────────────────────

type fakeModerationStore struct {
	err     error
	updates map[string]ModerationUpdate
}

func (s *fakeModerationStore) UpdateModeration(_ context.Context, courseID string, u ModerationUpdate) error {
	if s.err != nil {
		return s.err
	}
	if s.updates == nil {
		s.updates = make(map[string]ModerationUpdate)
	}
	s.updates[courseID] = u
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
