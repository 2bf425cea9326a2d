package batcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	mu      sync.Mutex
	flushes map[string][][]int
}

func newCapture() *capture {
	return &capture{flushes: make(map[string][][]int)}
}

func (c *capture) flush(key string, items []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes[key] = append(c.flushes[key], items)
}

func (c *capture) get(key string) [][]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes[key]
}

func TestBatcherGroupsWithinWindow(t *testing.T) {
	c := newCapture()
	b := New(20*time.Millisecond, c.flush)

	b.Add("room-1", 1)
	b.Add("room-1", 2)
	b.Add("room-2", 3)

	assert.Eventually(t, func() bool {
		return len(c.get("room-1")) == 1 && len(c.get("room-2")) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []int{1, 2}, c.get("room-1")[0])
	assert.Equal(t, []int{3}, c.get("room-2")[0])
}

func TestBatcherFlushCancelsTimer(t *testing.T) {
	c := newCapture()
	b := New(20*time.Millisecond, c.flush)

	b.Add("room-1", 1)
	b.Flush("room-1")

	require.Len(t, c.get("room-1"), 1)

	// the window elapsing must not produce a second, empty flush
	time.Sleep(40 * time.Millisecond)
	assert.Len(t, c.get("room-1"), 1)
}

func TestBatcherCloseFlushesPending(t *testing.T) {
	c := newCapture()
	b := New(time.Hour, c.flush)

	b.Add("room-1", 1)
	b.Close()

	require.Len(t, c.get("room-1"), 1)
	assert.Equal(t, []int{1}, c.get("room-1")[0])

	b.Add("room-1", 2)
	assert.Len(t, c.get("room-1"), 1)
}
