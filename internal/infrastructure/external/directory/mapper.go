package directory

import "github.com/learnhub/learnhub-engine/internal/application/normalize"

// Mapper converts directory DTOs into raw records for the normalizer.
// It does not apply defaults; that is the normalizer's job.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ToRawCourse maps one CourseDTO.
func (m *Mapper) ToRawCourse(dto CourseDTO) normalize.RawCourse {
	raw := normalize.RawCourse{
		ID:              dto.ID,
		Title:           dto.Title,
		Description:     dto.Description,
		Category:        dto.Category,
		InstructorID:    dto.InstructorID,
		Thumbnail:       dto.ThumbnailURL,
		Price:           dto.Price,
		Level:           dto.Level,
		Language:        dto.Language,
		Duration:        dto.Duration,
		Rating:          dto.Rating,
		TotalLessons:    dto.TotalLessons,
		TotalStudents:   dto.TotalStudents,
		Revenue:         dto.Revenue,
		HasCertificate:  dto.HasCertificate,
		IsDraft:         dto.IsDraft,
		IsPublished:     dto.IsPublished,
		IsApproved:      dto.IsApproved,
		RejectionReason: dto.RejectionReason,
		CreatedAt:       dto.CreatedAt,
		UpdatedAt:       dto.UpdatedAt,
	}

	if dto.Instructor != nil {
		if dto.Instructor.FullName != "" {
			name := dto.Instructor.FullName
			raw.InstructorName = &name
		}
		if raw.InstructorID == nil && dto.Instructor.ID != "" {
			id := dto.Instructor.ID
			raw.InstructorID = &id
		}
	}

	return raw
}

// ToRawCourses maps a page of CourseDTOs.
func (m *Mapper) ToRawCourses(dtos []CourseDTO) []normalize.RawCourse {
	out := make([]normalize.RawCourse, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, m.ToRawCourse(dto))
	}
	return out
}
