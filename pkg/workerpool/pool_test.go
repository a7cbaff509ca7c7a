package workerpool

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitforge/fitforge/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func TestPool_RunsEveryTask(t *testing.T) {
	pool := New("test", 4, 8)

	const n = 100
	var count atomic.Int64
	for range n {
		require.NoError(t, pool.Submit(context.Background(), func() { count.Add(1) }))
	}
	pool.Shutdown()

	assert.EqualValues(t, n, count.Load())
}

func TestPool_TrySubmitReportsFullBacklog(t *testing.T) {
	pool := New("test", 1, 1)
	defer pool.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.TrySubmit(func() {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, pool.TrySubmit(func() {}))
	assert.ErrorIs(t, pool.TrySubmit(func() {}), ErrPoolFull)

	close(release)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	pool := New("test", 1, 0)
	defer pool.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() {
		close(started)
		<-release
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Submit(ctx, func() {}), context.DeadlineExceeded)

	close(release)
}

func TestPool_ClosedRejects(t *testing.T) {
	pool := New("test", 2, 2)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.TrySubmit(func() {}), ErrPoolClosed)
	assert.ErrorIs(t, pool.Submit(context.Background(), func() {}), ErrPoolClosed)
}

func TestPool_SurvivesPanics(t *testing.T) {
	pool := New("test", 1, 2)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, pool.Submit(context.Background(), func() {
		defer wg.Done()
		panic("boom")
	}))
	wg.Wait()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func() { close(done) }))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}
