package util

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to filename so that readers observe either the previous content
// or the new one, never a partial write. The data is written to a temporary file in the same
// directory, synced, and renamed over filename.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp := filename + ".tmp." + randomSuffix()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	// Remove the temporary file if anything below fails. After the rename this is a no-op.
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		return err
	}
	return syncDir(filepath.Dir(filename))
}

// WriteJSONFileAtomic marshals v as indented JSON and writes it with WriteFileAtomic.
func WriteJSONFileAtomic(filename string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal %T: %w", v, err)
	}
	data = append(data, '\n')
	return WriteFileAtomic(filename, data, perm)
}

// ReadJSONFile unmarshals the content of filename into v. If the file does not exist,
// it returns false and no error.
func ReadJSONFile(filename string, v any) (bool, error) {
	data, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("cannot parse %s: %w", filename, err)
	}
	return true, nil
}

// syncDir makes the directory entry of a renamed file durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("syncing directory %s: %w", dir, err)
	}
	return nil
}

func randomSuffix() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
