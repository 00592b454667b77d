package files

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLocked(t *testing.T) {
	ctx := context.Background()
	filePath := filepath.Join(t.TempDir(), "sub", "rules.yaml")
	assert.False(t, Exists(filePath))

	require.NoError(t, WriteLocked(ctx, filePath, []byte("first")))
	require.True(t, Exists(filePath))
	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "first", string(content))

	// Overwrites.
	require.NoError(t, WriteLocked(ctx, filePath, []byte("second")))
	content, err = os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
	assert.False(t, Exists(filePath+".tmp"))
}

func TestWriteLockedConcurrent(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "rules.yaml")
	payloads := []string{"aaaa", "bbbbbbbb", "cccccccccccc", "dd"}
	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, WriteLocked(context.Background(), filePath, []byte(p)))
		}()
	}
	wg.Wait()

	// Whoever wrote last, the file holds one complete payload.
	content, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Contains(t, payloads, string(content))
}

func TestWithLock(t *testing.T) {
	ctx := context.Background()
	lockPath := filepath.Join(t.TempDir(), "x.lock")
	var calls int
	require.NoError(t, WithLock(ctx, lockPath, func() error { calls++; return nil }))
	require.NoError(t, WithLock(ctx, lockPath, func() error { calls++; return nil }))
	assert.Equal(t, 2, calls)

	errFailed := errors.New("failed")
	err := WithLock(ctx, lockPath, func() error { return errFailed })
	assert.ErrorIs(t, err, errFailed)

	// The lock was released after the error.
	require.NoError(t, WithLock(ctx, lockPath, func() error { calls++; return nil }))
	assert.Equal(t, 3, calls)
}

func TestWithLockTimeout(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "x.lock")
	holder := flock.New(lockPath)
	require.NoError(t, holder.Lock())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var called bool
	err := WithLock(ctx, lockPath, func() error { called = true; return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	filePath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, holder.Close())
	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, WriteLocked(ctx, filePath, []byte("ok")))
	assert.True(t, Exists(filePath))
}
