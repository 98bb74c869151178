package rq

import (
	"sync"
	"testing"

	"github.com/jacnel/bundledrefs/bundle"
	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtMinTimestamp(t *testing.T) {
	c := NewClock()
	assert.Equal(t, bundle.MinTimestamp, c.Load())
}

func TestClock_NextStrictlyIncreasing(t *testing.T) {
	c := NewClock()
	prev := c.Load()
	for i := 0; i < 100; i++ {
		ts := c.Next()
		assert.Greater(t, ts, prev)
		prev = ts
	}
}

func TestClock_ConcurrentNextNeverRepeats(t *testing.T) {
	c := NewClock()
	const goroutines, perG = 20, 200
	seen := make(chan bundle.Timestamp, goroutines*perG)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				seen <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[bundle.Timestamp]bool)
	for ts := range seen {
		assert.False(t, unique[ts], "duplicate timestamp %d", ts)
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*perG)
}
