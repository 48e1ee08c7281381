package mysql

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"

	"github.com/netsec-ethz/ctwrangler/pkg/db"
)

type mysqlDB struct {
	db *sql.DB
}

var _ db.Conn = (*mysqlDB)(nil)

// NewMysqlDB is called to create a new instance of the mysqlDB.
func NewMysqlDB(db *sql.DB) (*mysqlDB, error) {
	return &mysqlDB{
		db: db,
	}, nil
}

func (c *mysqlDB) DB() *sql.DB {
	return c.db
}

func (c *mysqlDB) Close() error {
	return c.db.Close()
}

const createCheckpointTable = `CREATE TABLE IF NOT EXISTS ctlog_server_last_status (
	url_hash VARBINARY(32) NOT NULL,
	log_id VARCHAR(256) NOT NULL,
	size BIGINT UNSIGNED NOT NULL,
	sth BLOB,
	updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	PRIMARY KEY (url_hash)
) ENGINE=InnoDB CHARSET=binary COLLATE=binary`

func (c *mysqlDB) CreateSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, createCheckpointTable); err != nil {
		return fmt.Errorf("creating table ctlog_server_last_status: %w", err)
	}
	return nil
}

// LastCTlogServerState returns the last state of the log written into the DB.
// The logID specifies the CT log server from which this data comes from.
func (c *mysqlDB) LastCTlogServerState(ctx context.Context, logID string,
) (nextIndex uint64, sth []byte, found bool, err error) {

	str := "SELECT size, sth FROM ctlog_server_last_status WHERE url_hash = ?"
	err = c.db.QueryRowContext(ctx, str, logHash(logID)).Scan(&nextIndex, &sth)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil, false, nil
	case err != nil:
		return 0, nil, false, err
	}
	return nextIndex, sth, true, nil
}

// UpdateLastCTlogServerState updates the next index to fetch and the last observed tree head.
// The logID specifies the CT log server from which this index comes from.
func (c *mysqlDB) UpdateLastCTlogServerState(ctx context.Context, logID string,
	nextIndex uint64, sth []byte) error {

	str := "REPLACE INTO ctlog_server_last_status (url_hash, log_id, size, sth) VALUES (?,?,?,?)"
	_, err := c.db.ExecContext(ctx, str, logHash(logID), logID, nextIndex, sth)
	return err
}

func logHash(logID string) []byte {
	h := sha256.Sum256([]byte(logID))
	return h[:]
}
