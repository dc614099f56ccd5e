package queue

import (
	"log/slog"
	"sync"

	"github.com/partsync/partsync/internal/model"
)

// Queue is a bounded FIFO of scrape results.
//
// Design decision: We drop the oldest entry on overflow instead of blocking
// or rejecting because:
//  1. The producer is an HTTP handler serving the extension; blocking it
//     would stall the browser
//  2. A stale result belongs to a session the consumer has already given up
//     on, so it is the least valuable entry in the buffer
//  3. The single consumer drains far faster than scrapes arrive, so drops
//     only happen when the consumer is gone entirely
type Queue struct {
	mu       sync.Mutex
	entries  []*model.QueueEntry
	capacity int
	dropped  uint64
	logger   *slog.Logger

	// onDrop is invoked with every evicted entry, after the drop is logged.
	// Used by the coordinator to count drops. May be nil.
	onDrop func(*model.QueueEntry)
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for overflow events.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithDropHook sets a callback invoked when an entry is evicted on overflow.
func WithDropHook(fn func(*model.QueueEntry)) Option {
	return func(q *Queue) {
		q.onDrop = fn
	}
}

// New creates a queue holding at most capacity entries. Capacity must be
// positive; config validation enforces this before the queue is built.
func New(capacity int, opts ...Option) *Queue {
	q := &Queue{
		entries:  make([]*model.QueueEntry, 0, capacity),
		capacity: capacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends an entry. If the queue is full, the oldest entry is dropped
// first. Push never blocks and never fails.
func (q *Queue) Push(entry *model.QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == q.capacity {
		dropped := q.entries[0]
		q.entries = q.entries[1:]
		q.dropped++

		q.logger.Warn("result queue full, dropping oldest entry",
			slog.String("session", dropped.SessionID),
			slog.Uint64("dropped_total", q.dropped),
		)
		if q.onDrop != nil {
			q.onDrop(dropped)
		}
	}
	q.entries = append(q.entries, entry)
}

// Pop removes and returns the oldest entry. The second return value is false
// when the queue is empty.
func (q *Queue) Pop() (*model.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil, false
	}
	entry := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return entry, true
}

// PopSession removes and returns the oldest entry belonging to the given
// session. Entries for other sessions keep their positions. The second
// return value is false when no entry matches.
func (q *Queue) PopSession(sessionID string) (*model.QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, entry := range q.entries {
		if entry.SessionID == sessionID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return entry, true
		}
	}
	return nil, false
}

// Len returns the number of buffered entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped returns the number of entries evicted on overflow since creation.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
