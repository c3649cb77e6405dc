package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/learnhub/learnhub-engine/internal/application/normalize"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ══════════════════════════════════════════════════════════════════════════════
// HARNESS
// ══════════════════════════════════════════════════════════════════════════════

type harness struct {
	engine       *Engine
	directory    *fakeDirectory
	identity     *fakeIdentity
	enrollments  *fakeEnrollmentStore
	payments     *fakePaymentStore
	certificates *fakeCertificateStore
	events       *recordingPublisher
	deps         Deps
}

func defaultCourses() []normalize.RawCourse {
	return []normalize.RawCourse{
		{
			ID:             "c1",
			Title:          ptr("Go Fundamentals"),
			Category:       ptr("Programming"),
			InstructorName: ptr("Ada"),
			Price:          ptr(decimal.NewFromInt(100)),
			TotalLessons:   ptr(4),
			TotalStudents:  ptr(3),
			HasCertificate: ptr(true),
			IsPublished:    ptr(true),
			IsApproved:     ptr(true),
		},
		{
			ID:           "c2",
			Title:        ptr("Color Theory"),
			Category:     ptr("Design"),
			Price:        ptr(decimal.NewFromInt(50)),
			TotalLessons: ptr(0),
			IsPublished:  ptr(true),
			IsApproved:   ptr(true),
		},
	}
}

func newHarness(t *testing.T, configure ...func(*harness)) *harness {
	t.Helper()

	h := &harness{
		directory:    &fakeDirectory{courses: defaultCourses()},
		identity:     &fakeIdentity{userID: "u1"},
		enrollments:  &fakeEnrollmentStore{},
		payments:     &fakePaymentStore{},
		certificates: &fakeCertificateStore{},
		events:       &recordingPublisher{},
	}
	h.deps = Deps{
		Directory:    h.directory,
		Enrollments:  h.enrollments,
		Payments:     h.payments,
		Certificates: h.certificates,
		Identity:     h.identity,
		Events:       h.events,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:          func() time.Time { return testNow },
	}
	for _, fn := range configure {
		fn(h)
	}

	e, err := New(DefaultConfig(), h.deps)
	require.NoError(t, err)
	e.Load(context.Background())
	t.Cleanup(e.Close)

	h.engine = e
	return h
}

func (h *harness) pay(t *testing.T, courseID string) payment.Payment {
	t.Helper()
	return h.engine.ProcessPayment(context.Background(), courseID, "u1", decimal.NewFromInt(100), "card")
}

func (h *harness) enroll(t *testing.T, courseID string) *enrollment.Enrollment {
	t.Helper()
	en, err := h.engine.EnrollInCourse(context.Background(), courseID, "u1", h.pay(t, courseID))
	require.NoError(t, err)
	return en
}

// ══════════════════════════════════════════════════════════════════════════════
// CONSTRUCTION / LOAD
// ══════════════════════════════════════════════════════════════════════════════

func TestNewRequiresStores(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.existing = []normalize.RawEnrollment{
			{ID: "e1", UserID: "u1", CourseID: "c1", Progress: ptr(50), CompletedLessons: []string{"L1", "L2"}},
			{ID: "e2", UserID: "someone-else", CourseID: "c1"},
		}
		h.certificates.existing = []normalize.RawCertificate{{ID: "cert-old", UserID: "u1", CourseID: "c9"}}
		h.payments.existing = []normalize.RawPayment{{ID: "p-old", UserID: "u1", CourseID: "c1", Status: ptr("completed")}}
	})

	assert.True(t, h.engine.Ready())
	assert.Equal(t, "u1", h.engine.CurrentUserID())
	assert.Len(t, h.engine.Courses(), 2)
	assert.Len(t, h.engine.Enrollments("u1"), 1)
	assert.Len(t, h.engine.Certificates("u1"), 1)
	assert.Len(t, h.engine.Payments("u1"), 1)
	assert.True(t, h.engine.IsEnrolled("c1", "u1"))
}

func TestLoadFailuresLeaveCollectionsEmpty(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.directory.err = errors.New("directory down")
		h.enrollments.listErr = errors.New("db down")
		h.enrollments.existing = []normalize.RawEnrollment{{ID: "e1", UserID: "u1", CourseID: "c1"}}
		h.certificates.existing = []normalize.RawCertificate{{ID: "cert-old", UserID: "u1", CourseID: "c9"}}
	})

	assert.True(t, h.engine.Ready())
	assert.Empty(t, h.engine.Courses())
	assert.Empty(t, h.engine.Enrollments("u1"))
	assert.Len(t, h.engine.Certificates("u1"), 1)
}

func TestLoadWithoutIdentitySkipsUserData(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.identity.userID = ""
		h.enrollments.existing = []normalize.RawEnrollment{{ID: "e1", UserID: "u1", CourseID: "c1"}}
	})

	assert.True(t, h.engine.Ready())
	assert.Len(t, h.engine.Courses(), 2)
	assert.Empty(t, h.engine.CurrentUserID())
	assert.False(t, h.engine.IsEnrolled("c1", "u1"))
}

// ══════════════════════════════════════════════════════════════════════════════
// CART
// ══════════════════════════════════════════════════════════════════════════════

func TestCart(t *testing.T) {
	h := newHarness(t)
	c1 := *h.engine.Course("c1")
	c2 := *h.engine.Course("c2")

	assert.True(t, h.engine.AddToCart(c1))
	assert.False(t, h.engine.AddToCart(c1))
	assert.True(t, h.engine.AddToCart(c2))
	assert.Len(t, h.engine.Cart(), 2)
	assert.True(t, h.engine.CartTotal().Equal(decimal.NewFromInt(150)))

	h.engine.RemoveFromCart("c2")
	h.engine.RemoveFromCart("c2")
	assert.Len(t, h.engine.Cart(), 1)

	h.engine.ClearCart()
	assert.Empty(t, h.engine.Cart())
}

// ══════════════════════════════════════════════════════════════════════════════
// PAYMENT
// ══════════════════════════════════════════════════════════════════════════════

func TestProcessPayment(t *testing.T) {
	h := newHarness(t)

	p := h.engine.ProcessPayment(context.Background(), "c1", "u1", decimal.NewFromInt(100), "card")

	assert.Equal(t, payment.StatusCompleted, p.Status)
	assert.True(t, p.PlatformFee.Equal(decimal.NewFromInt(40)))
	assert.True(t, p.InstructorEarnings.Equal(decimal.NewFromInt(60)))
	assert.True(t, strings.HasPrefix(p.TransactionID, "TXN-"))
	assert.Equal(t, "card", p.Method)
	assert.Len(t, h.engine.Payments("u1"), 1)

	h.engine.Close()
	assert.Equal(t, 1, h.payments.createdCount())
	assert.Len(t, h.events.ofType(shared.EventPaymentProcessed), 1)

	mirrored := h.payments.createdPayments()[0]
	assert.Equal(t, p.ID, mirrored.ID)
	assert.Equal(t, p.TransactionID, mirrored.TransactionID)
}

func TestEnrollmentPaymentIDSurvivesReload(t *testing.T) {
	h := newHarness(t)
	en := h.enroll(t, "c1")
	h.engine.Close()

	stored := h.payments.createdPayments()
	require.Len(t, stored, 1)
	h.payments.existing = []normalize.RawPayment{{
		ID:            stored[0].ID,
		UserID:        stored[0].UserID,
		CourseID:      stored[0].CourseID,
		Amount:        ptr(stored[0].Amount),
		Status:        ptr(string(stored[0].Status)),
		TransactionID: ptr(stored[0].TransactionID),
	}}
	h.engine.Load(context.Background())

	payments := h.engine.Payments("u1")
	require.Len(t, payments, 1)
	assert.Equal(t, en.PaymentID, payments[0].ID)
}

func TestProcessPaymentNeverFails(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.payments.err = errors.New("insert failed")
	})

	p := h.engine.ProcessPayment(context.Background(), "c1", "u1", decimal.Zero, "card")
	h.engine.Close()

	assert.True(t, p.IsCompleted())
	assert.Len(t, h.engine.Payments("u1"), 1)
	assert.ErrorIs(t, ValidatePaymentAmount(decimal.Zero), shared.ErrValidationGap)
	assert.ErrorIs(t, ValidatePaymentAmount(decimal.NewFromInt(-5)), shared.ErrNonPositiveAmount)
	assert.NoError(t, ValidatePaymentAmount(decimal.NewFromInt(1)))
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

func TestEnrollInCourse(t *testing.T) {
	h := newHarness(t)
	h.engine.AddToCart(*h.engine.Course("c1"))
	p := h.pay(t, "c1")

	en, err := h.engine.EnrollInCourse(context.Background(), "c1", "u1", p)
	require.NoError(t, err)

	assert.Equal(t, "enr-1", en.ID)
	assert.Equal(t, p.ID, en.PaymentID)
	assert.True(t, en.AmountPaid.Equal(decimal.NewFromInt(100)))
	assert.True(t, h.engine.IsEnrolled("c1", "u1"))
	assert.False(t, h.engine.IsEnrolled("c1", "u2"))
	assert.False(t, h.engine.IsEnrolled("c2", "u1"))
	assert.Equal(t, 4, h.engine.Course("c1").TotalStudents)
	assert.Empty(t, h.engine.Cart())

	events := h.events.ofType(shared.EventEnrollmentCreated)
	require.Len(t, events, 1)
	created := events[0].(shared.EnrollmentCreatedEvent)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "enr-1", created.EnrollmentID)
}

func TestEnrollTwiceRejectsSecond(t *testing.T) {
	h := newHarness(t)
	h.enroll(t, "c1")

	_, err := h.engine.EnrollInCourse(context.Background(), "c1", "u1", h.pay(t, "c1"))

	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)
	assert.True(t, shared.IsPreconditionFailed(err))
	creates, _ := h.enrollments.counts()
	assert.Equal(t, 1, creates)
	assert.Len(t, h.engine.Enrollments("u1"), 1)
	assert.Equal(t, 4, h.engine.Course("c1").TotalStudents)
}

func TestEnrollPreconditions(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.EnrollInCourse(context.Background(), "missing", "u1", h.pay(t, "missing"))
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)
	assert.True(t, shared.IsNotFound(err))

	pending := payment.Payment{ID: "p1", Status: payment.StatusPending, Amount: decimal.NewFromInt(100)}
	_, err = h.engine.EnrollInCourse(context.Background(), "c1", "u1", pending)
	assert.ErrorIs(t, err, shared.ErrPaymentNotCompleted)

	creates, _ := h.enrollments.counts()
	assert.Zero(t, creates)
	assert.False(t, h.engine.IsEnrolled("c1", "u1"))
}

func TestEnrollPersistenceFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.createErr = errors.New("connection reset")
	})
	h.engine.AddToCart(*h.engine.Course("c1"))

	_, err := h.engine.EnrollInCourse(context.Background(), "c1", "u1", h.pay(t, "c1"))

	require.Error(t, err)
	assert.True(t, shared.IsPersistence(err))
	assert.False(t, h.engine.IsEnrolled("c1", "u1"))
	assert.Equal(t, 3, h.engine.Course("c1").TotalStudents)
	assert.Len(t, h.engine.Cart(), 1)
	assert.Empty(t, h.events.ofType(shared.EventEnrollmentCreated))
}

func TestEnrollStoreUniqueViolation(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.createErr = shared.WrapError("enrollment", "Create", shared.ErrAlreadyExists, "duplicate", shared.ErrAlreadyEnrolled)
	})

	_, err := h.engine.EnrollInCourse(context.Background(), "c1", "u1", h.pay(t, "c1"))
	assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)
}

func TestConcurrentEnrollMakesOneStoreCall(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.started = make(chan struct{}, 2)
		h.enrollments.release = make(chan struct{})
	})
	p := h.pay(t, "c1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	run := func(i int) {
		defer wg.Done()
		_, errs[i] = h.engine.EnrollInCourse(context.Background(), "c1", "u1", p)
	}

	wg.Add(2)
	go run(0)
	<-h.enrollments.started
	go run(1)
	time.Sleep(20 * time.Millisecond)
	close(h.enrollments.release)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrAlreadyEnrolled)
	}
	assert.Equal(t, 1, succeeded)
	creates, _ := h.enrollments.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 4, h.engine.Course("c1").TotalStudents)
}

func TestGetEnrolledCoursesSkipsUnknownCourses(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.existing = []normalize.RawEnrollment{
			{ID: "e1", UserID: "u1", CourseID: "c1"},
			{ID: "e2", UserID: "u1", CourseID: "retired"},
		}
	})

	courses := h.engine.GetEnrolledCourses("u1")
	require.Len(t, courses, 1)
	assert.Equal(t, "c1", courses[0].ID)
	assert.Len(t, h.engine.Enrollments("u1"), 2)
	assert.Nil(t, h.engine.GetEnrollment("c2", "u1"))
	assert.Equal(t, "e2", h.engine.GetEnrollment("retired", "u1").ID)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

func TestUpdateProgress(t *testing.T) {
	h := newHarness(t)
	h.enroll(t, "c1")
	ctx := context.Background()

	for _, lesson := range []string{"L1", "L2", "L3"} {
		h.engine.UpdateProgress(ctx, "c1", "u1", lesson)
	}
	en := h.engine.GetEnrollment("c1", "u1")
	assert.Equal(t, 75, en.Progress)
	assert.Equal(t, []string{"L1", "L2", "L3"}, en.CompletedLessons)
	require.NotNil(t, en.LastAccessedAt)
	assert.Equal(t, testNow, *en.LastAccessedAt)
	assert.Nil(t, en.CompletedAt)

	// Re-marking is idempotent and makes no store call.
	_, updatesBefore := h.enrollments.counts()
	h.engine.UpdateProgress(ctx, "c1", "u1", "L2")
	_, updatesAfter := h.enrollments.counts()
	assert.Equal(t, updatesBefore, updatesAfter)
	assert.Equal(t, 75, h.engine.GetEnrollment("c1", "u1").Progress)
	assert.Len(t, h.engine.GetEnrollment("c1", "u1").CompletedLessons, 3)

	h.engine.UpdateProgress(ctx, "c1", "u1", "L4")
	en = h.engine.GetEnrollment("c1", "u1")
	assert.Equal(t, 100, en.Progress)
	assert.NotNil(t, en.CompletedAt)

	lessons := h.events.ofType(shared.EventLessonCompleted)
	require.Len(t, lessons, 4)
	assert.True(t, lessons[0].(shared.LessonCompletedEvent).IsFirstLesson())
	assert.False(t, lessons[1].(shared.LessonCompletedEvent).IsFirstLesson())
	assert.Len(t, h.events.ofType(shared.EventCourseCompleted), 1)
}

func TestUpdateProgressZeroLessons(t *testing.T) {
	h := newHarness(t)
	h.enroll(t, "c2")

	h.engine.UpdateProgress(context.Background(), "c2", "u1", "L1")

	en := h.engine.GetEnrollment("c2", "u1")
	assert.Zero(t, en.Progress)
	assert.Equal(t, []string{"L1"}, en.CompletedLessons)
	assert.Empty(t, h.events.ofType(shared.EventCourseCompleted))
}

func TestUpdateProgressIgnoresMissingEnrollment(t *testing.T) {
	h := newHarness(t)

	h.engine.UpdateProgress(context.Background(), "c1", "u1", "L1")
	h.engine.UpdateProgress(context.Background(), "nope", "u1", "L1")

	_, updates := h.enrollments.counts()
	assert.Zero(t, updates)
	assert.Empty(t, h.events.ofType(shared.EventLessonCompleted))
}

func TestUpdateProgressStoreFailureIsSwallowed(t *testing.T) {
	h := newHarness(t)
	h.enroll(t, "c1")
	h.enrollments.mu.Lock()
	h.enrollments.updateErr = errors.New("timeout")
	h.enrollments.mu.Unlock()

	h.engine.UpdateProgress(context.Background(), "c1", "u1", "L1")

	en := h.engine.GetEnrollment("c1", "u1")
	assert.Zero(t, en.Progress)
	assert.Empty(t, en.CompletedLessons)
	assert.Nil(t, en.LastAccessedAt)
	assert.Empty(t, h.events.ofType(shared.EventLessonCompleted))
}

func TestConcurrentLessonCompletionsKeepEveryLesson(t *testing.T) {
	h := newHarness(t)
	en := h.enroll(t, "c1")

	h.enrollments.updateStarted = make(chan struct{}, 2)
	h.enrollments.updateRelease = make(chan struct{})

	var wg sync.WaitGroup
	for _, lesson := range []string{"L1", "L2"} {
		wg.Add(1)
		go func(lesson string) {
			defer wg.Done()
			h.engine.UpdateProgress(context.Background(), "c1", "u1", lesson)
		}(lesson)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-h.enrollments.updateStarted:
		case <-time.After(2 * time.Second):
			t.Fatal("progress update never reached the store")
		}
		h.enrollments.updateRelease <- struct{}{}
	}
	wg.Wait()

	got := h.engine.GetEnrollment("c1", "u1")
	assert.ElementsMatch(t, []string{"L1", "L2"}, got.CompletedLessons)
	assert.Equal(t, 50, got.Progress)
	assert.ElementsMatch(t, []string{"L1", "L2"}, h.enrollments.persistedLessons(en.ID))
	assert.Len(t, h.events.ofType(shared.EventLessonCompleted), 2)
}

func TestProgressNeverDecreases(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.existing = []normalize.RawEnrollment{
			{ID: "e1", UserID: "u1", CourseID: "c1", Progress: ptr(80), CompletedLessons: []string{"L1"}},
		}
	})

	h.engine.UpdateProgress(context.Background(), "c1", "u1", "L2")

	assert.Equal(t, 80, h.engine.GetEnrollment("c1", "u1").Progress)
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE
// ══════════════════════════════════════════════════════════════════════════════

func completeAllLessons(h *harness, courseID string) {
	for _, lesson := range []string{"L1", "L2", "L3", "L4"} {
		h.engine.UpdateProgress(context.Background(), courseID, "u1", lesson)
	}
}

func TestCompleteCourseIssuesCertificate(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.certificates.existing = []normalize.RawCertificate{
			{ID: "cert-old", UserID: "u1", CourseID: "c9", VerificationCode: "LH-DE-2024-001"},
		}
	})
	h.enroll(t, "c1")
	completeAllLessons(h, "c1")

	cert := h.engine.CompleteCourse(context.Background(), "c1", "u1")

	require.NotNil(t, cert)
	assert.Equal(t, "LH-PR-2024-002", cert.VerificationCode)
	assert.Equal(t, "A", cert.Grade)
	assert.Equal(t, "Go Fundamentals", cert.CourseName)
	assert.Equal(t, "Ada", cert.InstructorName)
	assert.Equal(t, testNow, cert.CompletionDate)

	en := h.engine.GetEnrollment("c1", "u1")
	assert.True(t, en.CertificateIssued)
	assert.Equal(t, cert.ID, en.CertificateID)
	assert.Len(t, h.engine.Certificates("u1"), 2)
	assert.Len(t, h.events.ofType(shared.EventCertificateIssued), 1)

	again := h.engine.CompleteCourse(context.Background(), "c1", "u1")
	require.NotNil(t, again)
	assert.Equal(t, cert.ID, again.ID)
	assert.Equal(t, 1, h.certificates.insertCount())
}

func TestCompleteCourseNotEligible(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.enrollments.existing = []normalize.RawEnrollment{
			{ID: "e2", UserID: "u1", CourseID: "c2", Progress: ptr(100)},
		}
	})

	assert.Nil(t, h.engine.CompleteCourse(context.Background(), "c1", "u1"), "not enrolled")

	h.enroll(t, "c1")
	h.engine.UpdateProgress(context.Background(), "c1", "u1", "L1")
	assert.Nil(t, h.engine.CompleteCourse(context.Background(), "c1", "u1"), "progress below 100")

	assert.Nil(t, h.engine.CompleteCourse(context.Background(), "c2", "u1"), "course without certificate")

	assert.Zero(t, h.certificates.insertCount())
	assert.Empty(t, h.engine.Certificates("u1"))
	assert.False(t, h.engine.GetEnrollment("c2", "u1").CertificateIssued)
	assert.Equal(t, 100, h.engine.GetEnrollment("c2", "u1").Progress)
}

func TestCompleteCourseStoreFailure(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.certificates.err = errors.New("insert failed")
	})
	h.enroll(t, "c1")
	completeAllLessons(h, "c1")

	assert.Nil(t, h.engine.CompleteCourse(context.Background(), "c1", "u1"))
	assert.False(t, h.engine.GetEnrollment("c1", "u1").CertificateIssued)
	assert.Empty(t, h.engine.Certificates("u1"))
}

func TestCompleteCourseUsesSequenceSource(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.deps.Sequence = &fakeSequence{next: 41}
	})
	h.enroll(t, "c1")
	completeAllLessons(h, "c1")

	cert := h.engine.CompleteCourse(context.Background(), "c1", "u1")
	require.NotNil(t, cert)
	assert.Equal(t, "LH-PR-2024-042", cert.VerificationCode)
}

func TestCompleteCourseSequenceFallback(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.deps.Sequence = &fakeSequence{err: errors.New("redis down")}
	})
	h.enroll(t, "c1")
	completeAllLessons(h, "c1")

	cert := h.engine.CompleteCourse(context.Background(), "c1", "u1")
	require.NotNil(t, cert)
	assert.Equal(t, "LH-PR-2024-001", cert.VerificationCode)
}

// ══════════════════════════════════════════════════════════════════════════════
// MODERATION
// ══════════════════════════════════════════════════════════════════════════════

func TestModeration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.engine.PublishCourse(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, c.IsPublished)
	assert.False(t, c.IsApproved)
	assert.False(t, c.IsDraft)
	assert.Equal(t, course.StatePendingApproval, c.Moderation())

	c, err = h.engine.RejectCourse(ctx, "c1", "needs more lessons")
	require.NoError(t, err)
	assert.Equal(t, course.StateRejected, c.Moderation())
	assert.Equal(t, "needs more lessons", h.engine.Course("c1").RejectionReason)

	c, err = h.engine.ApproveCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, course.StatePublished, c.Moderation())
	assert.Empty(t, c.RejectionReason)

	_, err = h.engine.ApproveCourse(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrCourseNotFound)

	assert.Len(t, h.events.ofType(shared.EventCourseModerated), 3)
}

func TestRejectRequiresReasonAndResubmitClearsIt(t *testing.T) {
	store := &fakeModerationStore{}
	h := newHarness(t, func(h *harness) { h.deps.Moderation = store })
	ctx := context.Background()

	_, err := h.engine.RejectCourse(ctx, "c1", "  ")
	assert.ErrorIs(t, err, shared.ErrRejectionReasonRequired)
	assert.ErrorIs(t, err, shared.ErrInvalidEntity)
	assert.Empty(t, store.updates)
	assert.Equal(t, course.StatePublished, h.engine.Course("c1").Moderation())

	_, err = h.engine.RejectCourse(ctx, "c1", "spam")
	require.NoError(t, err)

	c, err := h.engine.PublishCourse(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, course.StatePendingApproval, c.Moderation())
	assert.Empty(t, store.updates["c1"].RejectionReason)
}

func TestModerationPersistsBeforeLocalChange(t *testing.T) {
	store := &fakeModerationStore{}
	h := newHarness(t, func(h *harness) { h.deps.Moderation = store })

	_, err := h.engine.RejectCourse(context.Background(), "c1", "spam")
	require.NoError(t, err)
	assert.Equal(t, "spam", store.updates["c1"].RejectionReason)
	assert.False(t, store.updates["c1"].IsPublished)

	store.err = errors.New("db down")
	_, err = h.engine.ApproveCourse(context.Background(), "c1")
	assert.True(t, shared.IsPersistence(err))
	assert.Equal(t, course.StateRejected, h.engine.Course("c1").Moderation())
}
