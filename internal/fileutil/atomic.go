// Package fileutil implements the atomic writes the trainer's checkpoints
// and strategy exports rely on: each artifact is staged to a temporary
// file and renamed over the destination, so a process killed mid-write
// never leaves a truncated table for the next run to load.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to filename so readers observe either the
// previous complete file or the new complete one, never a partial write.
// The staging file is created in the destination's directory (a rename
// across filesystems is not atomic), synced, chmodded to perm, and renamed
// into place.
func WriteFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("fileutil: stage %s: %w", filename, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("fileutil: write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fileutil: sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fileutil: close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("fileutil: chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("fileutil: commit %s: %w", filename, err)
	}
	committed = true
	return nil
}
