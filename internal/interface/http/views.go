package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/learnhub/learnhub-engine/internal/domain/achievement"
	"github.com/learnhub/learnhub-engine/internal/domain/certificate"
	"github.com/learnhub/learnhub-engine/internal/domain/course"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/payment"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE VIEWS
// ══════════════════════════════════════════════════════════════════════════════

type courseView struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	InstructorID    string          `json:"instructor_id,omitempty"`
	InstructorName  string          `json:"instructor_name"`
	Thumbnail       string          `json:"thumbnail"`
	Price           decimal.Decimal `json:"price"`
	Level           string          `json:"level"`
	Language        string          `json:"language"`
	Duration        string          `json:"duration"`
	Rating          float64         `json:"rating"`
	TotalLessons    int             `json:"total_lessons"`
	TotalStudents   int             `json:"total_students"`
	HasCertificate  bool            `json:"has_certificate"`
	Moderation      string          `json:"moderation"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
}

func toCourseView(c *course.Course) courseView {
	return courseView{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		Category:        c.Category,
		InstructorID:    c.InstructorID,
		InstructorName:  c.InstructorName,
		Thumbnail:       c.Thumbnail,
		Price:           c.Price,
		Level:           c.Level,
		Language:        c.Language,
		Duration:        c.Duration,
		Rating:          c.Rating,
		TotalLessons:    c.TotalLessons,
		TotalStudents:   c.TotalStudents,
		HasCertificate:  c.HasCertificate,
		Moderation:      c.Moderation().String(),
		RejectionReason: c.RejectionReason,
	}
}

func toCourseViews(cs []*course.Course) []courseView {
	out := make([]courseView, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCourseView(c))
	}
	return out
}

type cartView struct {
	Items []courseView    `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func toCartView(items []course.CartItem, total decimal.Decimal) cartView {
	view := cartView{Items: make([]courseView, 0, len(items)), Total: total}
	for i := range items {
		view.Items = append(view.Items, toCourseView(&items[i].Course))
	}
	return view
}

type enrollmentView struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	CourseID          string     `json:"course_id"`
	Progress          int        `json:"progress"`
	CompletedLessons  []string   `json:"completed_lessons"`
	CertificateIssued bool       `json:"certificate_issued"`
	CertificateID     string     `json:"certificate_id,omitempty"`
	PaymentID         string     `json:"payment_id,omitempty"`
	EnrolledAt        time.Time  `json:"enrolled_at"`
	LastAccessedAt    *time.Time `json:"last_accessed_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

func toEnrollmentView(e *enrollment.Enrollment) enrollmentView {
	lessons := e.CompletedLessons
	if lessons == nil {
		lessons = []string{}
	}
	return enrollmentView{
		ID:                e.ID,
		UserID:            e.UserID,
		CourseID:          e.CourseID,
		Progress:          e.Progress,
		CompletedLessons:  lessons,
		CertificateIssued: e.CertificateIssued,
		CertificateID:     e.CertificateID,
		PaymentID:         e.PaymentID,
		EnrolledAt:        e.EnrolledAt,
		LastAccessedAt:    e.LastAccessedAt,
		CompletedAt:       e.CompletedAt,
	}
}

type certificateView struct {
	ID               string    `json:"id"`
	CourseID         string    `json:"course_id"`
	CourseName       string    `json:"course_name"`
	InstructorName   string    `json:"instructor_name"`
	VerificationCode string    `json:"verification_code"`
	Grade            string    `json:"grade"`
	IssuedAt         time.Time `json:"issued_at"`
	CompletionDate   time.Time `json:"completion_date"`
}

func toCertificateView(c *certificate.Certificate) certificateView {
	return certificateView{
		ID:               c.ID,
		CourseID:         c.CourseID,
		CourseName:       c.CourseName,
		InstructorName:   c.InstructorName,
		VerificationCode: c.VerificationCode,
		Grade:            c.Grade,
		IssuedAt:         c.IssuedAt,
		CompletionDate:   c.CompletionDate,
	}
}

type paymentView struct {
	ID                 string          `json:"id"`
	CourseID           string          `json:"course_id"`
	Amount             decimal.Decimal `json:"amount"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	InstructorEarnings decimal.Decimal `json:"instructor_earnings"`
	Status             string          `json:"status"`
	Method             string          `json:"payment_method"`
	TransactionID      string          `json:"transaction_id"`
	CreatedAt          time.Time       `json:"created_at"`
}

func toPaymentView(p *payment.Payment) paymentView {
	return paymentView{
		ID:                 p.ID,
		CourseID:           p.CourseID,
		Amount:             p.Amount,
		PlatformFee:        p.PlatformFee,
		InstructorEarnings: p.InstructorEarnings,
		Status:             string(p.Status),
		Method:             p.Method,
		TransactionID:      p.TransactionID,
		CreatedAt:          p.CreatedAt,
	}
}

type achievementView struct {
	Type     string    `json:"type"`
	Points   int       `json:"points"`
	EarnedAt time.Time `json:"earned_at"`
}

func toAchievementViews(as []achievement.Achievement) []achievementView {
	out := make([]achievementView, 0, len(as))
	for _, a := range as {
		out = append(out, achievementView{Type: string(a.Type), Points: a.Points, EarnedAt: a.EarnedAt})
	}
	return out
}
