// Package checkpoint persists the synchronization progress of a CT log.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/netsec-ethz/ctwrangler/pkg/sth"
)

// Checkpoint is the persisted progress of one log: every entry with index below NextIndex has
// been fetched and verified. LastSTH is the last tree head observed for the log.
type Checkpoint struct {
	NextIndex uint64   `json:"next_index"`
	LastSTH   *sth.STH `json:"last_observed_sth,omitempty"`
}

// Validate checks the internal consistency of the checkpoint.
func (c *Checkpoint) Validate() error {
	if c.LastSTH == nil {
		if c.NextIndex != 0 {
			return fmt.Errorf("next index %d without an observed tree head", c.NextIndex)
		}
		return nil
	}
	if c.NextIndex > c.LastSTH.TreeSize {
		return fmt.Errorf("next index %d beyond observed tree size %d",
			c.NextIndex, c.LastSTH.TreeSize)
	}
	return nil
}

// Store loads and stores checkpoints. Store must be atomic: after a crash, Load returns either
// the previous or the new checkpoint.
type Store interface {
	// Load returns the checkpoint of the log, or a zero checkpoint if there is none yet.
	Load(ctx context.Context, logID string) (*Checkpoint, error)
	Store(ctx context.Context, logID string, c *Checkpoint) error
}
