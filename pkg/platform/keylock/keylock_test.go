package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	arena := New()
	ctx := context.Background()

	release, err := arena.Acquire(ctx, "user-1")
	require.NoError(t, err)

	var acquired bool
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		r, err := arena.Acquire(ctx, "user-1")
		mu.Lock()
		acquired = true
		mu.Unlock()
		if err == nil {
			r()
		}
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.False(t, acquired, "second holder must wait for the first")
	mu.Unlock()

	release()
	<-done
	mu.Lock()
	assert.True(t, acquired)
	mu.Unlock()
}

func TestAcquireDifferentKeysDoNotBlock(t *testing.T) {
	arena := New()
	ctx := context.Background()

	r1, err := arena.Acquire(ctx, "user-1")
	require.NoError(t, err)
	defer r1()

	done := make(chan struct{})
	go func() {
		r2, err := arena.Acquire(ctx, "user-2")
		if err == nil {
			r2()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquisition on a different key blocked")
	}
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	arena := New()
	release, err := arena.Acquire(context.Background(), "user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = arena.Acquire(ctx, "user-1")
	assert.Error(t, err)

	release()
}

func TestEntriesReclaimedAfterRelease(t *testing.T) {
	arena := New()
	ctx := context.Background()

	release, err := arena.Acquire(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, arena.Len())

	release()
	assert.Equal(t, 0, arena.Len())
}

func TestConcurrentHoldersAllRun(t *testing.T) {
	arena := New()
	ctx := context.Background()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := arena.Acquire(ctx, "shared")
			if err != nil {
				return
			}
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, arena.Len())
}
