package storage

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/pkg/tracing"
)

const dbSystemRedis = "redis"

// RedisStorage keeps each counter as an integer string under "<prefix>:<key>".
type RedisStorage struct {
	client *redis.Client
	prefix string
	tracer *tracing.Tracer
}

func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "counters"
	}
	return &RedisStorage{
		client: client,
		prefix: prefix,
		tracer: tracing.NewTracer(tracing.GetTracer("counter-store")),
	}
}

func (r *RedisStorage) key(key string) string {
	return r.prefix + ":" + key
}

func (r *RedisStorage) Read(ctx context.Context, key string) (int64, error) {
	ctx, span := r.tracer.StartDBSpan(ctx, dbSystemRedis, "GET", r.prefix)
	defer span.End()

	v, err := r.client.Get(ctx, r.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		err = appErr.NewStorageUnavailable("read %q: %v", key, err)
		r.tracer.RecordError(span, err)
		return 0, err
	}
	return v, nil
}

func (r *RedisStorage) Write(ctx context.Context, key string, value int64) error {
	ctx, span := r.tracer.StartDBSpan(ctx, dbSystemRedis, "SET", r.prefix)
	defer span.End()

	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		err = appErr.NewStorageUnavailable("write %q: %v", key, err)
		r.tracer.RecordError(span, err)
		return err
	}
	return nil
}

func (r *RedisStorage) Increment(ctx context.Context, key string) (int64, error) {
	ctx, span := r.tracer.StartDBSpan(ctx, dbSystemRedis, "INCR", r.prefix)
	defer span.End()

	v, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		err = appErr.NewStorageUnavailable("increment %q: %v", key, err)
		r.tracer.RecordError(span, err)
		return 0, err
	}
	return v, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
