// Package storage persists show state in PostgreSQL. Every write that touches
// a show keeps its basic event row, detail row and snapshot row consistent by
// running in a single transaction.
package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors
var (
	// ErrNotFound is returned when a show does not exist
	ErrNotFound = errors.New("not found")

	// ErrUpsertFailed wraps any failure of the three-table write. Nothing was persisted.
	ErrUpsertFailed = errors.New("show upsert failed")

	// ErrInvalidPreserve is returned when a preserve column is not an updatable column
	ErrInvalidPreserve = errors.New("invalid preserve column")

	// ErrMismatchedRecords is returned when the three records do not share one show id
	ErrMismatchedRecords = errors.New("records do not share a show id")

	// ErrInvalidStatus is returned for an unknown show status name
	ErrInvalidStatus = errors.New("invalid show status")
)

// DB is the subset of pgxpool.Pool the store uses
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ShowWriter persists the records of one show atomically
type ShowWriter interface {
	UpsertShowAll(ctx context.Context, recs ShowRecords, opts UpsertOptions) error
}
