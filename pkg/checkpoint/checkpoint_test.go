package checkpoint

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-ethz/ctwrangler/pkg/db"
	"github.com/netsec-ethz/ctwrangler/pkg/sth"
)

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		c           Checkpoint
		expectError bool
	}{
		"initial": {},
		"unset_sth_with_progress": {
			c:           Checkpoint{NextIndex: 3},
			expectError: true,
		},
		"in_progress": {
			c: Checkpoint{NextIndex: 3, LastSTH: &sth.STH{TreeSize: 10}},
		},
		"caught_up": {
			c: Checkpoint{NextIndex: 10, LastSTH: &sth.STH{TreeSize: 10}},
		},
		"beyond_tree": {
			c:           Checkpoint{NextIndex: 11, LastSTH: &sth.STH{TreeSize: 10}},
			expectError: true,
		},
	}
	for name, tc := range cases {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tc.c.Validate()
			if tc.expectError {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	require.Equal(t, "7s3QZNXbGs9leMEMVH-_ae8t2cr6jdLlVJnTbc-RkzY=",
		FileName("7s3QZNXbGs9leMEMVH+/ae8t2cr6jdLlVJnTbc+RkzY="))
	require.Equal(t, "ct.googleapis.com_logs_argon2025h1",
		FileName("ct.googleapis.com/logs/argon2025h1"))
	require.Equal(t, "a_b", FileName("a/b"))
	require.NotContains(t, FileName("../../etc/passwd"), "/")
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.DirExists(t, dir)

	// Absent checkpoint.
	c, err := s.Load(ctx, "log/1")
	require.NoError(t, err)
	require.Equal(t, &Checkpoint{}, c)
	require.NoFileExists(t, s.Path("log/1"))

	expected := &Checkpoint{
		NextIndex: 4,
		LastSTH: &sth.STH{
			TreeSize:  5,
			Timestamp: 1670302800000,
			RootHash:  []byte{1, 2, 3},
		},
	}
	require.NoError(t, s.Store(ctx, "log/1", expected))
	require.FileExists(t, s.Path("log/1"))

	got, err := s.Load(ctx, "log/1")
	require.NoError(t, err)
	require.Equal(t, expected, got)

	// Other logs are independent.
	c, err = s.Load(ctx, "log/2")
	require.NoError(t, err)
	require.Equal(t, uint64(0), c.NextIndex)

	// The directory only contains the checkpoint itself.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A corrupt file is an error, not an empty checkpoint.
	require.NoError(t, os.WriteFile(s.Path("log/3"), []byte("{"), 0644))
	_, err = s.Load(ctx, "log/3")
	require.Error(t, err)
}

func TestFileStoreCancelled(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Store(ctx, "log", &Checkpoint{}))
	require.NoFileExists(t, s.Path("log"))
}

// memConn is an in-memory db.Conn.
type memConn struct {
	mu   sync.Mutex
	rows map[string]memRow
}

type memRow struct {
	next uint64
	sth  []byte
}

var _ db.Conn = (*memConn)(nil)

func (c *memConn) Close() error                           { return nil }
func (c *memConn) DB() *sql.DB                            { return nil }
func (c *memConn) CreateSchema(ctx context.Context) error { return nil }

func (c *memConn) LastCTlogServerState(ctx context.Context, logID string) (
	uint64, []byte, bool, error) {

	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rows[logID]
	return r.next, r.sth, ok, nil
}

func (c *memConn) UpdateLastCTlogServerState(ctx context.Context, logID string,
	nextIndex uint64, sth []byte) error {

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rows == nil {
		c.rows = make(map[string]memRow)
	}
	c.rows[logID] = memRow{next: nextIndex, sth: sth}
	return nil
}

func TestSQLStore(t *testing.T) {
	ctx := context.Background()
	conn := &memConn{}
	s := NewSQLStore(conn)

	c, err := s.Load(ctx, "log")
	require.NoError(t, err)
	require.Equal(t, &Checkpoint{}, c)

	expected := &Checkpoint{
		NextIndex: 2,
		LastSTH:   &sth.STH{TreeSize: 5, Timestamp: 10, RootHash: []byte{0xff}},
	}
	require.NoError(t, s.Store(ctx, "log", expected))
	got, err := s.Load(ctx, "log")
	require.NoError(t, err)
	require.Equal(t, expected, got)

	conn.rows["bad"] = memRow{next: 1, sth: []byte("not json")}
	_, err = s.Load(ctx, "bad")
	require.Error(t, err)
}

func TestLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.lock")

	unlock, err := Lock(path)
	require.NoError(t, err)

	_, err = Lock(path)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock())
	unlock, err = Lock(path)
	require.NoError(t, err)
	require.NoError(t, unlock())
}
