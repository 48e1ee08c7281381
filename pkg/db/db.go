package db

import (
	"context"
	"database/sql"
)

// Conn: interface for db connection
type Conn interface {
	// Close closes the connection.
	Close() error

	// DB returns the underlying connection pool.
	DB() *sql.DB

	// CreateSchema creates the tables used by the wrangler if they don't exist yet.
	CreateSchema(ctx context.Context) error

	// LastCTlogServerState returns the last state written for the CT log identified by logID:
	// the next index to fetch and the serialized tree head. If there is no state for that log,
	// found is false and no error is returned.
	LastCTlogServerState(ctx context.Context, logID string) (
		nextIndex uint64, sth []byte, found bool, err error)

	// UpdateLastCTlogServerState replaces the state of the CT log identified by logID.
	UpdateLastCTlogServerState(ctx context.Context, logID string, nextIndex uint64, sth []byte) error
}
