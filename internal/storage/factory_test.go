package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samims/hitcounter/internal/config"
	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/secret"
)

func TestNewBuilder(t *testing.T) {
	srv := miniredis.RunT(t)
	t.Setenv("COUNTER_REDIS_URL", "redis://"+srv.Addr()+"/0")

	tests := []struct {
		name      string
		cfg       config.StoreConfig
		wantErr   func(error) bool
		increment bool
	}{
		{
			name:      "memory",
			cfg:       config.StoreConfig{Backend: config.BackendMemory},
			increment: true,
		},
		{
			name:      "redis url from secret",
			cfg:       config.StoreConfig{Backend: config.BackendRedis, URLSecret: "COUNTER_REDIS_URL", Table: "counters"},
			increment: true,
		},
		{
			name:    "missing secret",
			cfg:     config.StoreConfig{Backend: config.BackendRedis, URLSecret: "NO_SUCH_SECRET_FOR_TEST"},
			wantErr: appErr.IsSecretRetrievalFailed,
		},
		{
			name:    "bad redis url",
			cfg:     config.StoreConfig{Backend: config.BackendRedis, URL: "://nope"},
			wantErr: appErr.IsStorageUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			build := NewBuilder(tt.cfg, secret.NewStoreProvider(secret.StoreEnv, slog.Default()), slog.Default())

			store, err := build(ctx)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), err.Error())
				return
			}
			require.NoError(t, err)

			inc, ok := store.(Incrementer)
			require.Equal(t, tt.increment, ok)

			got, err := inc.Increment(ctx, "requests")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got)
		})
	}

	assert.Equal(t, "1", mustGet(t, srv, "counters:requests"))
}

func mustGet(t *testing.T, srv *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := srv.Get(key)
	require.NoError(t, err)
	return v
}
