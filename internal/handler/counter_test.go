package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	appErr "github.com/samims/hitcounter/internal/errors"
)

type stubCounterService struct {
	handle  func(ctx context.Context) (int64, error)
	current func(ctx context.Context) (int64, error)
}

func (s stubCounterService) Handle(ctx context.Context) (int64, error)  { return s.handle(ctx) }
func (s stubCounterService) Current(ctx context.Context) (int64, error) { return s.current(ctx) }

func TestCounterHandler_Count(t *testing.T) {
	tests := []struct {
		name       string
		handle     func(ctx context.Context) (int64, error)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "returns updated count",
			handle:     func(context.Context) (int64, error) { return 42, nil },
			wantStatus: http.StatusOK,
			wantBody:   "42",
		},
		{
			name: "hides failure detail",
			handle: func(context.Context) (int64, error) {
				return 0, appErr.NewCounterUpdateFailed(appErr.NewStorageUnavailable("dial tcp 10.0.0.3:5432"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal server error\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCounterHandler(stubCounterService{handle: tt.handle}, slog.Default())

			rec := httptest.NewRecorder()
			h.Count(rec, httptest.NewRequest(http.MethodGet, "/count", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
		})
	}
}

func TestCounterHandler_Current(t *testing.T) {
	h := NewCounterHandler(stubCounterService{
		current: func(context.Context) (int64, error) { return 7, nil },
	}, slog.Default())

	rec := httptest.NewRecorder()
	h.Current(rec, httptest.NewRequest(http.MethodGet, "/count/current", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())
}

type stubHealthService struct{ ready error }

func (stubHealthService) Liveness(context.Context) error    { return nil }
func (s stubHealthService) Readiness(context.Context) error { return s.ready }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      error
		wantStatus int
	}{
		{name: "ready", wantStatus: http.StatusOK},
		{name: "store down", ready: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(stubHealthService{ready: tt.ready}, slog.Default())

			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			rec = httptest.NewRecorder()
			h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", rec.Body.String())
		})
	}
}
