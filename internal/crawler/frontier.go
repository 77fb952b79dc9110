package crawler

import (
	"fmt"
	"sync"
)

// Task is one pending page fetch. It is never mutated after creation.
type Task struct {
	URL       string
	Key       string
	Depth     int
	ParentURL string
	ParentKey string
}

// Frontier implements a thread-safe FIFO of crawl tasks with deduplication.
// Pop never blocks; workers poll and back off so they can observe the
// global idle condition.
type Frontier struct {
	mu      sync.Mutex
	items   []Task
	queued  map[string]bool // key: canonicalKey@depth
	busy    int             // tasks popped but not yet Done
	stopped bool
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		items:  make([]Task, 0),
		queued: make(map[string]bool),
	}
}

// Push adds a task unless the same resource was already queued at this depth
// Returns true if added, false if duplicate or stopped
func (f *Frontier) Push(task Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return false
	}

	key := makeKey(task.Key, task.Depth)
	if f.queued[key] {
		return false
	}

	f.queued[key] = true
	f.items = append(f.items, task)
	return true
}

// Pop removes and returns the first task and marks the caller busy.
// Returns (empty, false) when there is nothing to pop.
func (f *Frontier) Pop() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped || len(f.items) == 0 {
		return Task{}, false
	}

	task := f.items[0]
	f.items[0] = Task{}
	f.items = f.items[1:]
	f.busy++
	return task, true
}

// Done marks a previously popped task as finished
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy > 0 {
		f.busy--
	}
}

// Drained reports whether the frontier is empty and no popped task is still
// being processed, i.e. no more work can appear
func (f *Frontier) Drained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) == 0 && f.busy == 0
}

// IsEmpty returns true if the frontier has no items
func (f *Frontier) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items) == 0
}

// Size returns the current number of queued tasks
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Busy returns the number of tasks currently being processed
func (f *Frontier) Busy() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Stop makes the frontier refuse new tasks and report empty on Pop
func (f *Frontier) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// makeKey creates a deduplication key from canonical key and depth
func makeKey(key string, depth int) string {
	return fmt.Sprintf("%s@%d", key, depth)
}
