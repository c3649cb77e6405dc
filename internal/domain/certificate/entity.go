// Package certificate contains the course-completion certificate and its
// verification code format.
package certificate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultGrade is used until a grading policy exists.
const DefaultGrade = "A"

// Certificate is issued once per completed enrollment.
type Certificate struct {
	ID               string
	UserID           string
	CourseID         string
	CourseName       string
	InstructorName   string
	VerificationCode string
	Grade            string
	IssuedAt         time.Time
	CompletionDate   time.Time
}

// Clone returns a copy safe to hand out of the engine.
func (c *Certificate) Clone() *Certificate {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// VerificationCode formats <PREFIX>-<CATEGORY2><YEAR>-<SEQ3>.
//
// CATEGORY2 is the first two characters of category upper-cased, padded with
// 'X' when the category is shorter. SEQ3 is zero-padded to
// at least three digits.
//
//	VerificationCode("LH", "Programming", 2024, 2) == "LH-PR-2024-002"
func VerificationCode(prefix, category string, year, seq int) string {
	return fmt.Sprintf("%s-%s-%d-%03d", prefix, categoryCode(category), year, seq)
}

func categoryCode(category string) string {
	runes := []rune(strings.ToUpper(strings.TrimSpace(category)))
	if len(runes) > 2 {
		runes = runes[:2]
	}
	code := string(runes)
	for utf8.RuneCountInString(code) < 2 {
		code += "X"
	}
	return code
}
