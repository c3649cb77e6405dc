package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationCode(t *testing.T) {
	tests := []struct {
		name     string
		category string
		year     int
		seq      int
		want     string
	}{
		{"programming second certificate", "Programming", 2024, 2, "LH-PR-2024-002"},
		{"lowercase category", "design", 2025, 17, "LH-DE-2025-017"},
		{"leading digit kept", "3D Art", 2024, 1, "LH-3D-2024-001"},
		{"single letter padded", "Q", 2024, 1, "LH-QX-2024-001"},
		{"empty category", "", 2024, 1, "LH-XX-2024-001"},
		{"sequence wider than three digits", "Math", 2024, 1234, "LH-MA-2024-1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerificationCode("LH", tt.category, tt.year, tt.seq))
		})
	}
}
