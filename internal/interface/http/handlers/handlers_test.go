package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type readyFlag bool

func (r readyFlag) Ready() bool { return bool(r) }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCompositeHealthChecker(t *testing.T) {
	checker := NewCompositeHealthChecker("v1")
	status := checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "No health checks registered", status.Message)

	checker.AddCheck("engine", NewReadyCheck(readyFlag(true)))
	checker.AddCheck("database", NewPingCheck(pinger{}))
	status = checker.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Len(t, status.Checks, 2)

	checker.AddCheck("redis", NewPingCheck(pinger{err: errors.New("refused")}))
	checker.AddCheck("engine", NewReadyCheck(readyFlag(false)))
	status = checker.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.Ready)
	assert.Equal(t, "Some checks failed: engine, redis", status.Message)
	assert.Equal(t, "refused", status.Checks["redis"].Message)
}

func TestAPIKeyAuth(t *testing.T) {
	auth := NewAPIKeyAuth("X-API-Key", []string{"k1", ""})
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header", "X-API-Key", "k1", http.StatusNoContent},
		{"bearer", "Authorization", "Bearer k1", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.False(t, auth.IsValid(""))
}

func TestChainOrderAndLimits(t *testing.T) {
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		mark("outer"), mark("inner"), SecurityHeadersMiddleware, RequestSizeLimitMiddleware(4))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
