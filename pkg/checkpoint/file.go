package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/netsec-ethz/ctwrangler/pkg/util"
)

// FileStore keeps one JSON file per log in a directory.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a store writing under dir, which is created if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty checkpoint directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file holding the checkpoint of logID.
func (s *FileStore) Path(logID string) string {
	return filepath.Join(s.dir, FileName(logID)+".json")
}

func (s *FileStore) Load(ctx context.Context, logID string) (*Checkpoint, error) {
	c := &Checkpoint{}
	if _, err := util.ReadJSONFile(s.Path(logID), c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *FileStore) Store(ctx context.Context, logID string, c *Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := util.WriteJSONFileAtomic(s.Path(logID), c, 0644); err != nil {
		return fmt.Errorf("cannot write checkpoint for %s: %w", logID, err)
	}
	return nil
}

// FileName maps a log identifier (base64 log IDs contain '/' and '+') to a file name.
func FileName(logID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '.', r == '_', r == '=':
			return r
		case r == '+':
			return '-'
		case r == '/', r == ':':
			return '_'
		default:
			return -1
		}
	}, logID)
}
