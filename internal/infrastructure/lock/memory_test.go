package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/unify/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	release, err := l.Acquire(ctx, "full-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, l.Held("full-run"))

	_, err = l.Acquire(ctx, "full-run", time.Minute)
	assert.ErrorIs(t, err, shared.ErrRunInProgress)

	other, err := l.Acquire(ctx, "file-7", time.Minute)
	require.NoError(t, err, "names are independent")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, l.Held("full-run"))

	again, err := l.Acquire(ctx, "full-run", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "full-run", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	assert.False(t, l.Held("full-run"))

	fresh, err := l.Acquire(ctx, "full-run", time.Minute)
	require.NoError(t, err, "an expired lease can be taken over")

	require.NoError(t, stale(ctx))
	assert.True(t, l.Held("full-run"), "a stale release keeps the new holder's lease")

	require.NoError(t, fresh(ctx))
	assert.False(t, l.Held("full-run"))
}

func TestMemoryLocker_DefaultTTL(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLocker()
	l.now = func() time.Time { return now }

	_, err := l.Acquire(context.Background(), "full-run", 0)
	require.NoError(t, err)

	now = now.Add(DefaultTTL - time.Second)
	assert.True(t, l.Held("full-run"))
	now = now.Add(2 * time.Second)
	assert.False(t, l.Held("full-run"))
}

func TestMemoryLocker_Concurrent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Acquire(ctx, "full-run", time.Minute); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
