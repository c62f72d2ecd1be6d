package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	appErr "github.com/samims/hitcounter/internal/errors"
	"github.com/samims/hitcounter/pkg/tracing"
)

const dbSystemPostgres = "postgresql"

// pgxConn is the subset of *pgxpool.Pool the store needs.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type PostgresStorage struct {
	db     pgxConn
	table  string
	tracer *tracing.Tracer
}

func NewPostgresStorage(db pgxConn, table string) *PostgresStorage {
	if table == "" {
		table = "counters"
	}
	return &PostgresStorage{
		db:     db,
		table:  pgx.Identifier{table}.Sanitize(),
		tracer: tracing.NewTracer(tracing.GetTracer("counter-store")),
	}
}

func (ps *PostgresStorage) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key   TEXT PRIMARY KEY,
			count BIGINT NOT NULL
		)`, ps.table)

	if _, err := ps.db.Exec(ctx, query); err != nil {
		return appErr.NewStorageUnavailable("create table %s: %v", ps.table, err)
	}
	return nil
}

func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.db.Ping(ctx)
}

func (ps *PostgresStorage) Read(ctx context.Context, key string) (int64, error) {
	ctx, span := ps.tracer.StartDBSpan(ctx, dbSystemPostgres, "SELECT", ps.table)
	defer span.End()

	query := fmt.Sprintf(`SELECT count FROM %s WHERE key = $1`, ps.table)

	var count int64
	err := ps.db.QueryRow(ctx, query, key).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		err = appErr.NewStorageUnavailable("read %q: %v", key, err)
		ps.tracer.RecordError(span, err)
		return 0, err
	}
	return count, nil
}

func (ps *PostgresStorage) Write(ctx context.Context, key string, value int64) error {
	ctx, span := ps.tracer.StartDBSpan(ctx, dbSystemPostgres, "UPSERT", ps.table)
	defer span.End()

	query := fmt.Sprintf(`
		INSERT INTO %s (key, count)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET count = EXCLUDED.count`, ps.table)

	if _, err := ps.db.Exec(ctx, query, key, value); err != nil {
		err = appErr.NewStorageUnavailable("write %q: %v", key, err)
		ps.tracer.RecordError(span, err)
		return err
	}
	return nil
}

// Increment runs as a single upsert so concurrent requests never lose an update.
func (ps *PostgresStorage) Increment(ctx context.Context, key string) (int64, error) {
	ctx, span := ps.tracer.StartDBSpan(ctx, dbSystemPostgres, "INCREMENT", ps.table)
	defer span.End()

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (key, count)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET count = %[1]s.count + 1
		RETURNING count`, ps.table)

	var count int64
	if err := ps.db.QueryRow(ctx, query, key).Scan(&count); err != nil {
		err = appErr.NewStorageUnavailable("increment %q: %v", key, err)
		ps.tracer.RecordError(span, err)
		return 0, err
	}
	return count, nil
}
