package mqtt

import (
	"sync"
	"time"
)

// queueTick is the drain interval: one queued message per tick.
const queueTick = 50 * time.Millisecond

// queueEntry is one deferred publication.
type queueEntry struct {
	topic   string
	payload []byte
}

// publishQueue defers publications and drains them one per tick in FIFO
// order. The dispatcher goroutine starts on the first enqueue and stops
// itself when the queue empties, so an idle queue costs nothing.
type publishQueue struct {
	publish func(topic string, payload []byte)
	logger  Logger

	mu      sync.Mutex
	entries []queueEntry
	running bool
	stopped bool
}

// newPublishQueue creates a queue draining through the given publish func.
func newPublishQueue(publish func(topic string, payload []byte), logger Logger) *publishQueue {
	return &publishQueue{
		publish: publish,
		logger:  logger,
	}
}

// enqueue appends an entry and starts the dispatcher if idle.
func (q *publishQueue) enqueue(topic string, payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}

	q.entries = append(q.entries, queueEntry{topic: topic, payload: payload})

	if !q.running {
		q.running = true
		go q.drain()
	}
}

// drain publishes one entry per tick until the queue is empty.
func (q *publishQueue) drain() {
	ticker := time.NewTicker(queueTick)
	defer ticker.Stop()

	for range ticker.C {
		q.mu.Lock()
		if q.stopped || len(q.entries) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		entry := q.entries[0]
		q.entries = q.entries[1:]
		q.mu.Unlock()

		q.publish(entry.topic, entry.payload)
	}
}

// length returns the number of waiting entries.
func (q *publishQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// stop discards pending entries and prevents further enqueues.
// The dispatcher goroutine exits on its next tick.
func (q *publishQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.entries = nil
}
