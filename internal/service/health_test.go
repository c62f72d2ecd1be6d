package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/samims/hitcounter/internal/storage"
)

func TestHealthService(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
	}{
		{name: "store reachable"},
		{name: "store down", pingErr: errors.New("connection refused")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMockCounterStore(t)
			s.On("Ping", mock.Anything).Return(tt.pingErr).Once()
			svc := NewHealthService(s, slog.Default())

			assert.NoError(t, svc.Liveness(context.Background()))
			assert.Equal(t, tt.pingErr, svc.Readiness(context.Background()))
		})
	}
}
