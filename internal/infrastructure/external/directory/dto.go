package directory

import (
	"time"

	"github.com/shopspring/decimal"
)

// APIResponse is the envelope every directory endpoint returns.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta carries pagination.
type Meta struct {
	Total      int `json:"total,omitempty"`
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// CourseDTO is a course as served by the directory. Optional fields are
// pointers; the directory omits what the author never filled in.
type CourseDTO struct {
	ID              string           `json:"id"`
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	InstructorID    *string          `json:"instructor_id"`
	Instructor      *InstructorDTO   `json:"instructor,omitempty"`
	ThumbnailURL    *string          `json:"thumbnail_url"`
	Price           *decimal.Decimal `json:"price"`
	Level           *string          `json:"level"`
	Language        *string          `json:"language"`
	Duration        *string          `json:"duration"`
	Rating          *float64         `json:"rating"`
	TotalLessons    *int             `json:"total_lessons"`
	TotalStudents   *int             `json:"total_students"`
	Revenue         *decimal.Decimal `json:"revenue"`
	HasCertificate  *bool            `json:"has_certificate"`
	IsDraft         *bool            `json:"is_draft"`
	IsPublished     *bool            `json:"is_published"`
	IsApproved      *bool            `json:"is_approved"`
	RejectionReason *string          `json:"rejection_reason"`
	CreatedAt       *time.Time       `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at"`
}

// InstructorDTO is the embedded instructor profile.
type InstructorDTO struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// APIErrorDTO is the body of a non-2xx response.
type APIErrorDTO struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Status    int    `json:"-"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
