package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"prodline-server/internal/modules/parameters/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-readings-since.sql
var getReadingsSinceSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

//go:embed sql/delete-readings.sql
var deleteReadingsSQL string

//go:embed sql/delete-targets.sql
var deleteTargetsSQL string

// tsLayout is fixed width so that TEXT comparison in SQLite matches time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type repositoryImpl struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository returns the SQLite-backed store.
func NewRepository(db *sql.DB) ParametersRepository {
	return &repositoryImpl{db: db, now: time.Now}
}

func (r *repositoryImpl) Insert(ctx context.Context, in types.NewReading) (types.Reading, error) {
	return r.insert(ctx, r.db, in)
}

func (r *repositoryImpl) insert(ctx context.Context, ex execer, in types.NewReading) (types.Reading, error) {
	in = stamp(in, r.now)
	res, err := ex.ExecContext(ctx, insertReadingSQL,
		in.Temperature, in.Humidity, in.Pressure, in.Speed,
		in.Timestamp.Format(tsLayout), in.IsTarget,
	)
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Reading{}, fmt.Errorf("insert reading: last insert id: %w", err)
	}
	return stored(id, in), nil
}

func (r *repositoryImpl) Latest(ctx context.Context, kind types.Kind) (*types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingSQL, kind.Filter())
	if err != nil {
		return nil, fmt.Errorf("latest %s reading: %w", kind, err)
	}
	defer closeRows(rows, "latest reading")

	out, err := scanReadings(rows)
	if err != nil {
		return nil, fmt.Errorf("latest %s reading: %w", kind, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *repositoryImpl) Range(ctx context.Context, since time.Time, kind types.Kind) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getReadingsSinceSQL, since.UTC().Format(tsLayout), kind.Filter())
	if err != nil {
		return nil, fmt.Errorf("readings since %s: %w", since.Format(time.RFC3339), err)
	}
	defer closeRows(rows, "readings")

	out, err := scanReadings(rows)
	if err != nil {
		return nil, fmt.Errorf("readings since %s: %w", since.Format(time.RFC3339), err)
	}
	return out, nil
}

func (r *repositoryImpl) Count(ctx context.Context, kind types.Kind) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countReadingsSQL, kind.Filter()).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s readings: %w", kind, err)
	}
	return n, nil
}

func (r *repositoryImpl) ReplaceAll(ctx context.Context, rows []types.NewReading) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("replace all: begin: %w", err)
	}
	defer rollback(tx, "replace all")

	res, err := tx.ExecContext(ctx, deleteReadingsSQL)
	if err != nil {
		return 0, fmt.Errorf("replace all: delete: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("replace all: rows affected: %w", err)
	}
	for i, in := range rows {
		if _, err := r.insert(ctx, tx, in); err != nil {
			return 0, fmt.Errorf("replace all: row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("replace all: commit: %w", err)
	}
	return deleted, nil
}

func (r *repositoryImpl) ReplaceTarget(ctx context.Context, in types.NewReading) (types.Reading, error) {
	in.IsTarget = true

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Reading{}, fmt.Errorf("replace target: begin: %w", err)
	}
	defer rollback(tx, "replace target")

	if _, err := tx.ExecContext(ctx, deleteTargetsSQL); err != nil {
		return types.Reading{}, fmt.Errorf("replace target: delete: %w", err)
	}
	out, err := r.insert(ctx, tx, in)
	if err != nil {
		return types.Reading{}, fmt.Errorf("replace target: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Reading{}, fmt.Errorf("replace target: commit: %w", err)
	}
	return out, nil
}

// rollback is deferred after BeginTx; it is a no-op once the tx has committed.
func rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Error(op+": rollback", "error", err)
	}
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	var ok int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("unexpected result from SELECT 1")
	}
	return nil
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := make([]types.Reading, 0)
	for rows.Next() {
		var rec types.Reading
		var ts string
		if err := rows.Scan(&rec.ID, &rec.Temperature, &rec.Humidity, &rec.Pressure, &rec.Speed, &ts, &rec.IsTarget); err != nil {
			return nil, err
		}
		t, err := time.Parse(tsLayout, ts)
		if err != nil {
			// Rows written by hand may use any RFC3339 form.
			var err2 error
			t, err2 = time.Parse(time.RFC3339Nano, ts)
			if err2 != nil {
				return nil, fmt.Errorf("parse timestamp %q: %w", ts, err2)
			}
		}
		rec.Timestamp = t.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}
