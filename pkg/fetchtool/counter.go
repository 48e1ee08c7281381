package fetchtool

import (
	"errors"
	"io/fs"
	"os"
	"strings"
)

// DirCounter counts the regular files directly inside a directory, one per fetched entry.
// Hidden files and files ending in ".tmp" are in-progress writes and not counted.
// A missing directory has zero entries.
type DirCounter struct{}

var _ Counter = DirCounter{}

func (DirCounter) Count(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		n++
	}
	return n, nil
}
