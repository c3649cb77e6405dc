package engine

import (
	"context"

	"github.com/learnhub/learnhub-engine/internal/domain/certificate"
	"github.com/learnhub/learnhub-engine/internal/domain/enrollment"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// CompleteCourse issues a certificate for a finished enrollment.
//
// It returns nil when the user is not eligible: the course or enrollment is
// missing, the course grants no certificate, or progress is below 100.
// An enrollment that already has a certificate gets it back without a new
// insert. A failing certificate store is logged and yields nil.
func (e *Engine) CompleteCourse(ctx context.Context, courseID, userID string) *certificate.Certificate {
	key := enrollment.Key{UserID: userID, CourseID: courseID}.String()

	v, _, _ := e.inflight.Do("certificate|"+key, func() (interface{}, error) {
		return e.completeCourse(ctx, courseID, userID), nil
	})
	cert, _ := v.(*certificate.Certificate)
	return cert.Clone()
}

func (e *Engine) completeCourse(ctx context.Context, courseID, userID string) *certificate.Certificate {
	e.mu.RLock()
	c := e.findCourse(courseID)
	en := e.findEnrollment(courseID, userID)
	if c == nil || en == nil || !c.HasCertificate || !en.IsComplete() {
		e.mu.RUnlock()
		e.logger.Debug("course not eligible for certificate",
			"user_id", userID,
			"course_id", courseID,
			"error", shared.ErrNotEligible,
		)
		return nil
	}
	if en.CertificateIssued {
		existing := e.findCertificate(courseID, userID, en.CertificateID).Clone()
		e.mu.RUnlock()
		return existing
	}
	localSeq := len(e.certificates) + 1
	category := c.Category
	rec := CertificateRecord{
		UserID:         userID,
		CourseID:       courseID,
		CourseName:     c.Title,
		InstructorName: c.InstructorName,
		Grade:          e.cfg.CertificateGrade,
	}
	e.mu.RUnlock()

	now := e.now().UTC()
	seq := e.nextSequence(ctx, localSeq)
	rec.CompletionDate = now
	rec.VerificationCode = certificate.VerificationCode(e.cfg.CertificatePrefix, category, now.Year(), seq)

	raw, err := e.deps.Certificates.Insert(ctx, rec)
	if err != nil {
		e.logger.Error("failed to issue certificate",
			"user_id", userID,
			"course_id", courseID,
			"verification_code", rec.VerificationCode,
			"error", err,
		)
		return nil
	}
	cert, err := e.normalizer.Certificate(raw)
	if err != nil {
		e.logger.Error("store returned an invalid certificate", "error", err)
		return nil
	}
	if cert.VerificationCode == "" {
		cert.VerificationCode = rec.VerificationCode
	}

	e.mu.Lock()
	e.certificates = append(e.certificates, cert)
	if live := e.findEnrollment(courseID, userID); live != nil {
		live.MarkCertificateIssued(cert.ID)
	}
	out := cert.Clone()
	e.mu.Unlock()

	e.logger.Info("certificate issued",
		"user_id", userID,
		"course_id", courseID,
		"certificate_id", out.ID,
		"verification_code", out.VerificationCode,
	)

	e.publish(shared.NewCertificateIssuedEvent(userID, courseID, out.ID, out.VerificationCode))

	return out
}

// nextSequence prefers the shared counter and falls back to the local count.
func (e *Engine) nextSequence(ctx context.Context, local int) int {
	if e.deps.Sequence == nil {
		return local
	}
	seq, err := e.deps.Sequence.NextCertificateSequence(ctx)
	if err != nil {
		e.logger.Warn("certificate sequence unavailable, using local count",
			"local_sequence", local,
			"error", err,
		)
		return local
	}
	return seq
}
