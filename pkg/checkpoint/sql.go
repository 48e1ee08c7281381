package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/netsec-ethz/ctwrangler/pkg/db"
	"github.com/netsec-ethz/ctwrangler/pkg/sth"
)

// SQLStore keeps checkpoints in the ctlog_server_last_status table.
type SQLStore struct {
	conn db.Conn
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(conn db.Conn) *SQLStore {
	return &SQLStore{conn: conn}
}

func (s *SQLStore) Load(ctx context.Context, logID string) (*Checkpoint, error) {
	next, data, found, err := s.conn.LastCTlogServerState(ctx, logID)
	if err != nil {
		return nil, fmt.Errorf("cannot read checkpoint for %s: %w", logID, err)
	}
	c := &Checkpoint{}
	if !found {
		return c, nil
	}
	c.NextIndex = next
	if len(data) > 0 {
		c.LastSTH = &sth.STH{}
		if err := json.Unmarshal(data, c.LastSTH); err != nil {
			return nil, fmt.Errorf("cannot parse tree head for %s: %w", logID, err)
		}
	}
	return c, nil
}

func (s *SQLStore) Store(ctx context.Context, logID string, c *Checkpoint) error {
	var data []byte
	if c.LastSTH != nil {
		var err error
		if data, err = json.Marshal(c.LastSTH); err != nil {
			return err
		}
	}
	// A single REPLACE statement, hence atomic.
	if err := s.conn.UpdateLastCTlogServerState(ctx, logID, c.NextIndex, data); err != nil {
		return fmt.Errorf("cannot write checkpoint for %s: %w", logID, err)
	}
	return nil
}
