// Package chunkcache provides a concurrency-safe lazy cache for indexed data
// loaded in fixed-size chunks.
//
// Element lookups map to chunk lookups: element i lives in chunk
// i / chunkSize at position i % chunkSize. Each chunk is in one of three
// states:
//
//   - not requested: no data, no fetch in flight
//   - pending: exactly one caller is fetching it, others wait
//   - loaded: data is present and immutable
//
// At most one fetch per chunk is ever in flight, and the fetch runs outside
// the cache lock. A failed fetch returns the chunk to the not-requested
// state and hands the error to every waiter; a later lookup may retry.
// Loaded chunks are never evicted.
package chunkcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfRange is returned for element indexes past the end of the data.
var ErrOutOfRange = errors.New("element index out of range")

// Fetcher loads the elements of one chunk. start is the index of the
// chunk's first element and n the number of elements to load, which is
// chunkSize except possibly for the final chunk.
type Fetcher[V any] func(ctx context.Context, chunk, start, n uint64) (V, error)

type state int

const (
	notRequested state = iota
	pending
	loaded
)

type chunk[V any] struct {
	state state
	val   V
	done  chan struct{} // closed when the current attempt settles
	err   error         // failure of the last settled attempt
}

// Cache holds lazily loaded chunks of an indexed sequence.
type Cache[V any] struct {
	mu        sync.Mutex
	chunkSize uint64
	count     uint64
	chunks    map[uint64]*chunk[V]
}

// New creates a cache over count elements loaded chunkSize at a time.
func New[V any](chunkSize, count uint64) *Cache[V] {
	if chunkSize == 0 {
		chunkSize = 1
	}
	return &Cache[V]{
		chunkSize: chunkSize,
		count:     count,
		chunks:    make(map[uint64]*chunk[V]),
	}
}

// Count returns the number of elements.
func (c *Cache[V]) Count() uint64 {
	return c.count
}

// ChunkSize returns the elements per chunk.
func (c *Cache[V]) ChunkSize() uint64 {
	return c.chunkSize
}

// Get returns the chunk holding element index, along with the element's
// position within it. If the chunk is not loaded, either this call fetches
// it or the call blocks on the fetch already in flight. Waiters receive the
// fetcher's error when the attempt fails; the chunk itself stays retryable.
func (c *Cache[V]) Get(ctx context.Context, index uint64, fetch Fetcher[V]) (V, uint64, error) {
	var zero V
	if index >= c.count {
		return zero, 0, fmt.Errorf("index %d of %d: %w", index, c.count, ErrOutOfRange)
	}
	ci := index / c.chunkSize
	sub := index % c.chunkSize

	for {
		c.mu.Lock()
		ch, ok := c.chunks[ci]
		if !ok {
			ch = &chunk[V]{}
			c.chunks[ci] = ch
		}

		switch ch.state {
		case loaded:
			v := ch.val
			c.mu.Unlock()
			return v, sub, nil

		case pending:
			done := ch.done
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return zero, 0, ctx.Err()
			case <-done:
			}
			c.mu.Lock()
			if ch.state == loaded {
				v := ch.val
				c.mu.Unlock()
				return v, sub, nil
			}
			err := ch.err
			c.mu.Unlock()
			if err != nil {
				return zero, 0, err
			}
			// A new attempt replaced the one we waited on; go around.

		case notRequested:
			ch.state = pending
			ch.done = make(chan struct{})
			ch.err = nil
			c.mu.Unlock()

			start := ci * c.chunkSize
			n := c.chunkSize
			if start+n > c.count {
				n = c.count - start
			}
			v, err := fetch(ctx, ci, start, n)

			c.mu.Lock()
			if err != nil {
				ch.state = notRequested
				ch.err = err
				close(ch.done)
				ch.done = nil
				c.mu.Unlock()
				return zero, 0, err
			}
			ch.state = loaded
			ch.val = v
			close(ch.done)
			ch.done = nil
			c.mu.Unlock()
			return v, sub, nil
		}
	}
}

// Loaded reports whether the chunk holding element index is already loaded,
// without triggering a fetch.
func (c *Cache[V]) Loaded(index uint64) bool {
	if index >= c.count {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.chunks[index/c.chunkSize]
	return ok && ch.state == loaded
}
