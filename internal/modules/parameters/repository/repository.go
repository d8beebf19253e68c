package repository

import (
	"context"
	"time"

	"prodline-server/internal/modules/parameters/types"
)

// ParametersRepository is the series store: an append-mostly table of readings
// ordered by timestamp, newest first, with ties broken by insertion order.
type ParametersRepository interface {
	// Insert stores r. A zero r.Timestamp is replaced with the current time.
	Insert(ctx context.Context, r types.NewReading) (types.Reading, error)
	// Latest returns the newest reading of the given kind, or nil when there is none.
	Latest(ctx context.Context, kind types.Kind) (*types.Reading, error)
	// Range returns readings with timestamp >= since, newest first.
	Range(ctx context.Context, since time.Time, kind types.Kind) ([]types.Reading, error)
	Count(ctx context.Context, kind types.Kind) (int, error)
	// ReplaceAll atomically clears the table and inserts rows in order. It
	// reports how many rows were removed. On error the table is left as it was.
	ReplaceAll(ctx context.Context, rows []types.NewReading) (int64, error)
	// ReplaceTarget atomically drops every stored target and inserts r as the only one.
	ReplaceTarget(ctx context.Context, r types.NewReading) (types.Reading, error)
	// Ping checks that the backing database answers queries.
	Ping(ctx context.Context) error
}

func stamp(r types.NewReading, now func() time.Time) types.NewReading {
	if r.Timestamp.IsZero() {
		r.Timestamp = now()
	}
	r.Timestamp = r.Timestamp.UTC()
	return r
}

func stored(id int64, r types.NewReading) types.Reading {
	return types.Reading{
		ID:        id,
		Values:    r.Values,
		Timestamp: r.Timestamp,
		IsTarget:  r.IsTarget,
	}
}
