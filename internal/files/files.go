// Package files implements file utilities: existence checks and writes coordinated across processes.
package files

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultDirCreationPerm is used when creating the directory of a file being written.
const DefaultDirCreationPerm = 0755

// DefaultFileCreationPerm is used for files written by WriteLocked.
const DefaultFileCreationPerm = 0644

// LockRetryDelay is how often a lock held by someone else is retried.
var LockRetryDelay = 10 * time.Millisecond

// Exists returns true if the file or directory exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteLocked writes content to filePath.
//
// The content goes to filePath+".tmp" first and is then renamed to filePath, so readers never see a partial file.
// Concurrent writers, in this or other processes, are serialized on filePath+".lock".
// Waiting for that lock is bounded by ctx.
func WriteLocked(ctx context.Context, filePath string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}
	tmpPath := filePath + ".tmp"
	return WithLock(ctx, filePath+".lock", func() error {
		if err := os.WriteFile(tmpPath, content, DefaultFileCreationPerm); err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				klog.Warningf("Failed removing temporary file %q: %v", tmpPath, rmErr)
			}
			return errors.Wrapf(err, "failed to write temporary file %q", tmpPath)
		}
		return errors.Wrapf(os.Rename(tmpPath, filePath), "failed to move %q to %q", tmpPath, filePath)
	})
}

// WithLock runs fn holding an exclusive lock on lockPath, which is created if needed and never removed.
//
// It returns an error without calling fn if ctx is done before the lock is acquired.
// Otherwise it returns fn's error, or the unlock error if fn succeeded.
func WithLock(ctx context.Context, lockPath string, fn func() error) (err error) {
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLockContext(ctx, LockRetryDelay)
	if err != nil {
		return errors.Wrapf(err, "while waiting for lock %q", lockPath)
	}
	if !locked {
		return errors.Errorf("failed to acquire lock %q", lockPath)
	}
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "failed to unlock %q", lockPath)
			} else {
				klog.Errorf("Failed to unlock %q: %v", lockPath, unlockErr)
			}
		}
	}()
	return fn()
}
