package repository

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prodline-server/internal/modules/parameters/types"
)

//go:embed sql/postgres/insert-reading.sql
var pgInsertReadingSQL string

//go:embed sql/postgres/get-latest-reading.sql
var pgGetLatestReadingSQL string

//go:embed sql/postgres/get-readings-since.sql
var pgGetReadingsSinceSQL string

//go:embed sql/postgres/count-readings.sql
var pgCountReadingsSQL string

//go:embed sql/postgres/delete-readings.sql
var pgDeleteReadingsSQL string

//go:embed sql/postgres/delete-targets.sql
var pgDeleteTargetsSQL string

// querier is the subset of pgx shared by the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRepository returns the PostgreSQL-backed store.
func NewPostgresRepository(pool *pgxpool.Pool) ParametersRepository {
	return &postgresRepository{pool: pool, now: time.Now}
}

func (r *postgresRepository) Insert(ctx context.Context, in types.NewReading) (types.Reading, error) {
	return r.insert(ctx, r.pool, in)
}

func (r *postgresRepository) insert(ctx context.Context, q querier, in types.NewReading) (types.Reading, error) {
	in = stamp(in, r.now)
	// TIMESTAMPTZ keeps microseconds; truncate so the returned row matches a re-read.
	in.Timestamp = in.Timestamp.Truncate(time.Microsecond)

	var id int64
	err := q.QueryRow(ctx, pgInsertReadingSQL,
		in.Temperature, in.Humidity, in.Pressure, in.Speed, in.Timestamp, in.IsTarget,
	).Scan(&id)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return stored(id, in), nil
}

func (r *postgresRepository) Latest(ctx context.Context, kind types.Kind) (*types.Reading, error) {
	rows, err := r.pool.Query(ctx, pgGetLatestReadingSQL, kind.Filter())
	if err != nil {
		return nil, fmt.Errorf("latest %s reading: %w", kind, err)
	}
	out, err := collectReadings(rows)
	if err != nil {
		return nil, fmt.Errorf("latest %s reading: %w", kind, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *postgresRepository) Range(ctx context.Context, since time.Time, kind types.Kind) ([]types.Reading, error) {
	rows, err := r.pool.Query(ctx, pgGetReadingsSinceSQL, since.UTC(), kind.Filter())
	if err != nil {
		return nil, fmt.Errorf("readings since %s: %w", since.Format(time.RFC3339), err)
	}
	out, err := collectReadings(rows)
	if err != nil {
		return nil, fmt.Errorf("readings since %s: %w", since.Format(time.RFC3339), err)
	}
	return out, nil
}

func (r *postgresRepository) Count(ctx context.Context, kind types.Kind) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, pgCountReadingsSQL, kind.Filter()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s readings: %w", kind, err)
	}
	return n, nil
}

func (r *postgresRepository) ReplaceAll(ctx context.Context, rows []types.NewReading) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, pgDeleteReadingsSQL)
		if err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		deleted = tag.RowsAffected()
		for i, in := range rows {
			if _, err := r.insert(ctx, tx, in); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace all: %w", err)
	}
	return deleted, nil
}

func (r *postgresRepository) ReplaceTarget(ctx context.Context, in types.NewReading) (types.Reading, error) {
	in.IsTarget = true

	var out types.Reading
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, pgDeleteTargetsSQL); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		var err error
		out, err = r.insert(ctx, tx, in)
		return err
	})
	if err != nil {
		return types.Reading{}, fmt.Errorf("replace target: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func collectReadings(rows pgx.Rows) ([]types.Reading, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Reading, error) {
		var rec types.Reading
		err := row.Scan(&rec.ID, &rec.Temperature, &rec.Humidity, &rec.Pressure, &rec.Speed, &rec.Timestamp, &rec.IsTarget)
		rec.Timestamp = rec.Timestamp.UTC()
		return rec, err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]types.Reading, 0)
	}
	return out, nil
}
