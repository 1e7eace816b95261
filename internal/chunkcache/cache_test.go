package chunkcache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestGetMapsIndexToChunk(t *testing.T) {
	c := New[[]uint64](16, 64)

	var gotChunk, gotStart, gotN uint64
	fetch := func(_ context.Context, chunk, start, n uint64) ([]uint64, error) {
		gotChunk, gotStart, gotN = chunk, start, n
		vals := make([]uint64, n)
		for i := range vals {
			vals[i] = start + uint64(i)
		}
		return vals, nil
	}

	vals, sub, err := c.Get(context.Background(), 42, fetch)
	require.NoError(t, err)

	assert.EqualValues(t, 2, gotChunk)
	assert.EqualValues(t, 32, gotStart)
	assert.EqualValues(t, 16, gotN)
	assert.EqualValues(t, 10, sub)
	assert.EqualValues(t, 42, vals[sub])
}

func TestGetFinalPartialChunk(t *testing.T) {
	c := New[[]uint64](16, 20)

	var gotN uint64
	fetch := func(_ context.Context, _, start, n uint64) ([]uint64, error) {
		gotN = n
		return make([]uint64, n), nil
	}

	_, sub, err := c.Get(context.Background(), 19, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 4, gotN, "final chunk covers only the remaining elements")
	assert.EqualValues(t, 3, sub)
}

func TestGetOutOfRange(t *testing.T) {
	c := New[[]uint64](16, 20)
	_, _, err := c.Get(context.Background(), 20, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestGetFetchesOnce(t *testing.T) {
	c := New[[]uint64](8, 64)

	var fetches atomic.Int64
	fetch := func(_ context.Context, _, start, n uint64) ([]uint64, error) {
		fetches.Add(1)
		time.Sleep(5 * time.Millisecond) // widen the race window
		vals := make([]uint64, n)
		for i := range vals {
			vals[i] = start + uint64(i)
		}
		return vals, nil
	}

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			vals, sub, err := c.Get(context.Background(), 13, fetch)
			if err != nil {
				return err
			}
			if vals[sub] != 13 {
				return errors.New("wrong element")
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, fetches.Load(), "exactly one fetch per chunk")
	assert.True(t, c.Loaded(13))
	assert.False(t, c.Loaded(30))
}

func TestGetFailureIsRetryable(t *testing.T) {
	c := New[[]uint64](8, 16)

	fetchErr := errors.New("backend unavailable")
	var fetches atomic.Int64
	fetch := func(_ context.Context, _, _, n uint64) ([]uint64, error) {
		if fetches.Add(1) == 1 {
			return nil, fetchErr
		}
		return make([]uint64, n), nil
	}

	_, _, err := c.Get(context.Background(), 3, fetch)
	require.ErrorIs(t, err, fetchErr)
	assert.False(t, c.Loaded(3))

	_, _, err = c.Get(context.Background(), 3, fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetches.Load())
	assert.True(t, c.Loaded(3))
}

func TestGetFailureWakesWaiters(t *testing.T) {
	c := New[[]uint64](8, 16)

	fetchErr := errors.New("backend unavailable")
	started := make(chan struct{})
	release := make(chan struct{})
	var attempts atomic.Int64
	fetch := func(_ context.Context, _, _, _ uint64) ([]uint64, error) {
		if attempts.Add(1) == 1 {
			close(started)
			<-release
		}
		return nil, fetchErr
	}

	var g errgroup.Group
	g.Go(func() error {
		_, _, err := c.Get(context.Background(), 1, fetch)
		return err
	})

	<-started
	var waiters errgroup.Group
	for i := 0; i < 4; i++ {
		waiters.Go(func() error {
			_, _, err := c.Get(context.Background(), 1, fetch)
			return err
		})
	}

	// Give the waiters time to block on the pending chunk, then fail it.
	time.Sleep(10 * time.Millisecond)
	close(release)

	assert.ErrorIs(t, g.Wait(), fetchErr)
	assert.ErrorIs(t, waiters.Wait(), fetchErr, "waiters receive the fetch error")
	assert.False(t, c.Loaded(1))
}

func TestGetContextCancel(t *testing.T) {
	c := New[[]uint64](8, 16)

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(_ context.Context, _, _, n uint64) ([]uint64, error) {
		close(started)
		<-release
		return make([]uint64, n), nil
	}

	go func() {
		_, _, _ = c.Get(context.Background(), 1, fetch)
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, _, err := c.Get(ctx, 1, fetch)
	require.ErrorIs(t, err, context.Canceled, "waiters honor cancellation")

	close(release)
}
