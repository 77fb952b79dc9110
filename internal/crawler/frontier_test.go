package crawler

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierFIFO(t *testing.T) {
	f := NewFrontier()
	assert.True(t, f.IsEmpty())

	for i := 0; i < 3; i++ {
		assert.True(t, f.Push(Task{URL: fmt.Sprintf("https://a.com/%d", i), Key: fmt.Sprintf("a.com/%d", i)}))
	}
	assert.Equal(t, 3, f.Size())

	for i := 0; i < 3; i++ {
		task, ok := f.Pop()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("a.com/%d", i), task.Key)
	}

	_, ok := f.Pop()
	assert.False(t, ok, "pop on empty returns none instead of blocking")
}

func TestFrontierDeduplicates(t *testing.T) {
	f := NewFrontier()

	assert.True(t, f.Push(Task{Key: "a.com/b", Depth: 1}))
	assert.False(t, f.Push(Task{Key: "a.com/b", Depth: 1}))
	assert.True(t, f.Push(Task{Key: "a.com/b", Depth: 0}), "a shorter depth is a different task")

	// already popped tasks still count as queued
	f.Pop()
	f.Done()
	assert.False(t, f.Push(Task{Key: "a.com/b", Depth: 1}))
}

func TestFrontierDrained(t *testing.T) {
	f := NewFrontier()
	assert.True(t, f.Drained())

	f.Push(Task{Key: "a.com"})
	assert.False(t, f.Drained())

	_, ok := f.Pop()
	require.True(t, ok)
	assert.True(t, f.IsEmpty())
	assert.False(t, f.Drained(), "a popped task is still being processed")
	assert.Equal(t, 1, f.Busy())

	f.Done()
	assert.True(t, f.Drained())
	assert.Equal(t, 0, f.Busy())

	f.Done()
	assert.Equal(t, 0, f.Busy())
}

func TestFrontierStop(t *testing.T) {
	f := NewFrontier()
	f.Push(Task{Key: "a.com"})
	f.Stop()

	assert.False(t, f.Push(Task{Key: "a.com/b"}))
	_, ok := f.Pop()
	assert.False(t, ok)
}

func TestFrontierConcurrentPopDeliversEachTaskOnce(t *testing.T) {
	f := NewFrontier()
	const total = 500
	for i := 0; i < total; i++ {
		f.Push(Task{Key: fmt.Sprintf("a.com/%d", i)})
	}

	var mu sync.Mutex
	got := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := f.Pop()
				if !ok {
					return
				}
				mu.Lock()
				got[task.Key]++
				mu.Unlock()
				f.Done()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, got, total)
	for key, n := range got {
		assert.Equal(t, 1, n, key)
	}
	assert.True(t, f.Drained())
}
