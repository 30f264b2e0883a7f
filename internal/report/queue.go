package report

import "sync"

// Queue buffers reports between the request handlers and the tick.
type Queue struct {
	mu    sync.Mutex
	items [][]string
}

// Enqueue appends a copy of fields.
func (q *Queue) Enqueue(fields []string) {
	cp := append([]string(nil), fields...)
	q.mu.Lock()
	q.items = append(q.items, cp)
	q.mu.Unlock()
}

// Drain removes and returns every queued report.
func (q *Queue) Drain() [][]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued reports.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
