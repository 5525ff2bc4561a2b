package crawler

import (
	"sync"
)

// Entry is a frontier item: an unexpanded node and its scan depth
type Entry struct {
	URL   string
	Depth int
}

// Queue implements a thread-safe FIFO frontier with deduplication.
// A URL is accepted once for the lifetime of the queue, so the queue
// order always matches node discovery order.
type Queue struct {
	mu      sync.Mutex
	items   []Entry
	visited map[string]bool
}

// NewQueue creates a new FIFO frontier
func NewQueue() *Queue {
	return &Queue{
		items:   make([]Entry, 0),
		visited: make(map[string]bool),
	}
}

// Push appends an entry unless its URL was pushed before.
// Returns true if added, false if duplicate
func (q *Queue) Push(entry Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.visited[entry.URL] {
		return false
	}

	q.visited[entry.URL] = true
	q.items = append(q.items, entry)
	return true
}

// Pop removes and returns the first entry.
// Returns (empty, false) if the queue is empty
func (q *Queue) Pop() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Entry{}, false
	}

	entry := q.items[0]
	q.items = q.items[1:]
	return entry, true
}

// IsEmpty returns true if the queue has no items
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the current number of items in the queue
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetAllEntries returns a snapshot of all current queue entries
func (q *Queue) GetAllEntries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]Entry, len(q.items))
	copy(entries, q.items)
	return entries
}
