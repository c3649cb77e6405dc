package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"none", 0, 4, 0},
		{"three of four", 3, 4, 75},
		{"all", 4, 4, 100},
		{"one of three rounds", 1, 3, 33},
		{"two of three rounds up", 2, 3, 67},
		{"zero lessons", 2, 0, 0},
		{"negative lessons", 1, -5, 0},
		{"more completed than lessons", 6, 4, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateProgress(tt.completed, tt.total))
		})
	}
}

func TestNextProgressNeverRegresses(t *testing.T) {
	assert.Equal(t, 80, NextProgress(80, 50))
	assert.Equal(t, 90, NextProgress(80, 90))
}

func TestWithLessonIsIdempotent(t *testing.T) {
	e := &Enrollment{CompletedLessons: []string{"L1"}}

	lessons, added := e.WithLesson("L2")
	assert.True(t, added)
	assert.Equal(t, []string{"L1", "L2"}, lessons)
	assert.Equal(t, []string{"L1"}, e.CompletedLessons, "receiver must not change")

	lessons, added = e.WithLesson("L1")
	assert.False(t, added)
	assert.Equal(t, []string{"L1"}, lessons)
}

func TestDedupeLessons(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, DedupeLessons([]string{"a", "", "b", "a"}))
	assert.Empty(t, DedupeLessons(nil))
}

func TestMergeLessons(t *testing.T) {
	assert.Equal(t, []string{"L1", "L2", "L3"}, MergeLessons([]string{"L1"}, []string{"L2", "L1"}, []string{"L3", ""}))
	assert.Empty(t, MergeLessons(nil, nil))
}

func TestCloneIsDeep(t *testing.T) {
	e := &Enrollment{ID: "e1", CompletedLessons: []string{"L1"}}
	cp := e.Clone()
	cp.CompletedLessons[0] = "changed"

	assert.Equal(t, "L1", e.CompletedLessons[0])
	assert.Equal(t, Key{UserID: "", CourseID: ""}, cp.Key())
}
