// Package filelock guards output files shared between concurrent runs with an
// advisory lock file and replaces them atomically.
package filelock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const retryDelay = 50 * time.Millisecond

// LockPath is the advisory lock file used for path.
func LockPath(path string) string {
	return path + ".lock"
}

// Acquire blocks until the lock for path is held or ctx ends. The returned
// function releases it.
func Acquire(ctx context.Context, path string) (func() error, error) {
	lock := flock.New(LockPath(path))
	locked, err := lock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire lock on %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire lock on %s: not acquired", path)
	}
	return func() error {
		if err := lock.Unlock(); err != nil {
			return fmt.Errorf("release lock on %s: %w", path, err)
		}
		return nil
	}, nil
}

// AtomicWrite replaces path with data via a temp file in the same directory
// and a rename, so readers never observe a partial file.
func AtomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	return nil
}

// LockAndWrite holds the lock for path while replacing it atomically.
func LockAndWrite(ctx context.Context, path string, data []byte) (err error) {
	release, err := Acquire(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return AtomicWrite(path, data)
}
