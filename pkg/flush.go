package pkg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const flushFileMode = 0644

// FlushToFile writes exactly Size bytes to path, replacing any existing
// file. The data goes to a temporary file in the same directory first, so a
// failed flush never leaves a truncated file at path.
func (c *BinaryWriter) FlushToFile(path string) error {
	tmpPath := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, flushFileMode)
	if err != nil {
		return errFlushing(err, path)
	}

	done := false
	defer func() {
		if !done {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := c.WriteTo(f); err != nil {
		return errFlushing(fmt.Errorf("err writing: %w", err), path)
	}

	if err := f.Sync(); err != nil {
		return errFlushing(fmt.Errorf("err calling fsync: %w", err), path)
	}

	done = true
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errFlushing(fmt.Errorf("err closing: %w", err), path)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errFlushing(err, path)
	}

	return nil
}
