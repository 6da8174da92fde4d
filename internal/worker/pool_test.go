package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResult struct {
	key string
	err error
}

func (r *stubResult) GetError() error { return r.err }

// stubJob pretends to refresh one jurisdiction
type stubJob struct {
	key     string
	delay   time.Duration
	fail    bool
	onStart func()
	onEnd   func()
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.onStart != nil {
		j.onStart()
	}
	if j.onEnd != nil {
		defer j.onEnd()
	}
	if j.delay > 0 {
		timer := time.NewTimer(j.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return &stubResult{key: j.key, err: ctx.Err()}
		}
	}
	if j.fail {
		return &stubResult{key: j.key, err: errors.New("source unavailable")}
	}
	return &stubResult{key: j.key}
}

func TestNewPool_WorkerFloor(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 5, NewPool(ctx, 5).workers)
	assert.Equal(t, 1, NewPool(ctx, 0).workers)
	assert.Equal(t, 1, NewPool(ctx, -3).workers)
}

func TestPool_ResultsFollowSubmissionOrder(t *testing.T) {
	keys := []string{"CA/San Diego", "OR/Portland", "TX/Austin", "CO/Denver", "FL/Miami", "NY"}

	pool := NewPool(context.Background(), 3)
	pool.Start()
	for i, k := range keys {
		// Earlier jobs run longer so completion order is reversed
		require.True(t, pool.Submit(&stubJob{key: k, delay: time.Duration(len(keys)-i) * 5 * time.Millisecond}))
	}

	results := pool.Wait()
	require.Len(t, results, len(keys))
	for i, r := range results {
		assert.Equal(t, keys[i], r.(*stubResult).key)
	}
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 4
	pool := NewPool(context.Background(), workers)
	pool.Start()

	var running, peak, done atomic.Int32
	for i := 0; i < 30; i++ {
		pool.Submit(&stubJob{
			delay: 5 * time.Millisecond,
			onStart: func() {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
			},
			onEnd: func() {
				running.Add(-1)
				done.Add(1)
			},
		})
	}
	pool.Wait()

	assert.Equal(t, int32(30), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestPool_ErrorsStayPerJob(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Submit(&stubJob{key: "CA", fail: true})
	pool.Submit(&stubJob{key: "OR"})

	results := pool.Wait()
	require.Len(t, results, 2)
	assert.EqualError(t, results[0].GetError(), "source unavailable")
	assert.NoError(t, results[1].GetError())
}

func TestPool_SubmitAfterShutdownIsRefused(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	accepted := make(chan bool, 1)
	go func() { accepted <- pool.Submit(&stubJob{key: "CA"}) }()

	select {
	case ok := <-accepted:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after shutdown")
	}
}

func TestPool_CancelStopsInFlightWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&stubJob{key: "CA", delay: 5 * time.Second, onStart: func() { close(started) }})
	<-started
	cancel()

	done := make(chan []Result, 1)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		require.Len(t, results, 1)
		assert.ErrorIs(t, results[0].GetError(), context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
