package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-engine/internal/domain/shared"
	"github.com/learnhub/learnhub-engine/pkg/circuitbreaker"
)

func strPtr(s string) *string { return &s }

func TestListPublishedCourses_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/courses", r.URL.Path)
		assert.Equal(t, "published", r.URL.Query().Get("status"))
		assert.Equal(t, "true", r.URL.Query().Get("approved"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var data []CourseDTO
		switch page {
		case 1:
			data = []CourseDTO{
				{ID: "c1", Title: strPtr("Go"), Instructor: &InstructorDTO{ID: "i1", FullName: "Ada"}},
				{ID: "c2"},
			}
		case 2:
			data = []CourseDTO{{ID: "c3"}}
		}
		_ = json.NewEncoder(w).Encode(APIResponse[[]CourseDTO]{
			Success: true,
			Data:    data,
			Meta:    &Meta{Page: page, PerPage: 2, TotalPages: 2},
		})
	}))
	defer srv.Close()

	cfg := DefaultClientConfig(srv.URL)
	cfg.APIKey = "secret"
	cfg.PageSize = 2
	client := NewClient(cfg)

	courses, err := client.ListPublishedCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 3)
	assert.EqualValues(t, 2, calls.Load())

	assert.Equal(t, "c1", courses[0].ID)
	require.NotNil(t, courses[0].InstructorName)
	assert.Equal(t, "Ada", *courses[0].InstructorName)
	require.NotNil(t, courses[0].InstructorID)
	assert.Equal(t, "i1", *courses[0].InstructorID)
	assert.Nil(t, courses[1].InstructorName)
}

func TestListPublishedCourses_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"code":"UPSTREAM","message":"catalog offline"}`))
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL))

	_, err := client.ListPublishedCourses(context.Background())
	require.Error(t, err)
	assert.True(t, shared.IsExternalService(err))

	var apiErr *APIErrorDTO
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "UPSTREAM: catalog offline", apiErr.Error())
}

func TestListPublishedCourses_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(DefaultClientConfig(srv.URL))
	for i := 0; i < 3; i++ {
		_, err := client.ListPublishedCourses(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, client.BreakerState())

	_, err := client.ListPublishedCourses(context.Background())
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.EqualValues(t, 3, calls.Load())
}

func TestIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer srv.Close()

	assert.True(t, NewClient(DefaultClientConfig(srv.URL)).IsHealthy(context.Background()))
}
