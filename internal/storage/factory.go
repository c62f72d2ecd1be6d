package storage

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samims/hitcounter/internal/config"
	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/internal/lazy"
	"github.com/samims/hitcounter/internal/secret"
)

// NewBuilder returns the constructor for the configured backend. The
// connection string is fetched from the secret store at build time.
func NewBuilder(cfg config.StoreConfig, secrets secret.Provider, logger *slog.Logger) lazy.Builder[CounterStore] {
	l := logger.With("layer", "storage", "backend", cfg.Backend)

	return func(ctx context.Context) (CounterStore, error) {
		if cfg.Backend == config.BackendMemory {
			l.Warn("Using in-memory counter store, counts are lost on restart")
			return NewMemoryStorage(), nil
		}

		url, err := secret.Resolve(ctx, secrets, cfg.URLSecret, cfg.URL)
		if err != nil {
			l.Error("Failed to resolve store credentials", slog.Any("error", err))
			return nil, err
		}

		switch cfg.Backend {
		case config.BackendPostgres:
			return buildPostgres(ctx, url, cfg, l)
		case config.BackendRedis:
			return buildRedis(ctx, url, cfg, l)
		default:
			return nil, appErr.NewStorageUnavailable("unsupported backend %q", cfg.Backend)
		}
	}
}

func buildPostgres(ctx context.Context, dsn string, cfg config.StoreConfig, l *slog.Logger) (CounterStore, error) {
	pool, err := NewPostgresPool(ctx, dsn, cfg.DatabaseName)
	if err != nil {
		l.Error("Failed to connect to database", slog.Any("error", err))
		return nil, appErr.NewStorageUnavailable("%v", err)
	}

	ps := NewPostgresStorage(pool, cfg.Table)
	if err := ps.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	l.Info("Postgres counter store ready", slog.String("table", cfg.Table))
	return &pooledPostgres{PostgresStorage: ps, pool: pool}, nil
}

func buildRedis(ctx context.Context, url string, cfg config.StoreConfig, l *slog.Logger) (CounterStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, appErr.NewStorageUnavailable("parse redis url: %v", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		l.Error("Failed to connect to redis", slog.Any("error", err))
		return nil, appErr.NewStorageUnavailable("ping redis: %v", err)
	}

	l.Info("Redis counter store ready", slog.String("prefix", cfg.Table))
	return NewRedisStorage(client, cfg.Table), nil
}

// pooledPostgres owns the pool so Close can release it.
type pooledPostgres struct {
	*PostgresStorage
	pool *pgxpool.Pool
}

func (p *pooledPostgres) Close() error {
	p.pool.Close()
	return nil
}
