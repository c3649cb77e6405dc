package redis

import (
	"context"
	"fmt"
)

// DefaultCertificateSequence names the certificate counter.
const DefaultCertificateSequence = "certificates"

// CertificateSequence hands out certificate sequence numbers from a Redis
// counter shared by every engine instance. Numbers are never reused.
type CertificateSequence struct {
	store Store
	key   string
}

// NewCertificateSequence creates a sequence on the named counter.
func NewCertificateSequence(store Store, name string) *CertificateSequence {
	if name == "" {
		name = DefaultCertificateSequence
	}
	return &CertificateSequence{store: store, key: SequenceKey(name)}
}

// NextCertificateSequence implements engine.SequenceSource.
func (s *CertificateSequence) NextCertificateSequence(ctx context.Context) (int, error) {
	n, err := s.store.Incr(ctx, s.key)
	if err != nil {
		return 0, fmt.Errorf("next certificate sequence: %w", err)
	}
	return int(n), nil
}
