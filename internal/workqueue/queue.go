// Package workqueue provides the FIFO shared between the batch coordinator
// and its workers. It mirrors the task-accounting queue pattern: every pushed
// item must eventually be marked done, and Join blocks until the count drains
// to zero. Stop sentinels travel through the queue as ordinary items so that
// each worker consumes exactly one on its way out.
package workqueue

import (
	"sync"
	"time"

	"jmdev.ca/glade-room-bot/internal/ledger"
)

// Item is one unit of queued work: an account attempt tagged with its batch
// position, or a stop sentinel telling the consuming worker to exit.
type Item struct {
	Account *ledger.Account
	Index   int
	Total   int
	Stop    bool
}

// StopItem returns a sentinel item. A worker that pops one marks it done and
// exits without popping further.
func StopItem() Item {
	return Item{Stop: true}
}

// Queue is an unbounded, multi-producer multi-consumer FIFO with outstanding-
// work accounting.
type Queue struct {
	mu         sync.Mutex
	items      []Item
	unfinished int
	drained    *sync.Cond
	wake       chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{
		wake: make(chan struct{}, 1),
	}
	q.drained = sync.NewCond(&q.mu)
	return q
}

// Push appends an item and increments the outstanding-work count.
func (q *Queue) Push(item Item) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.unfinished++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest item, waiting up to timeout for one
// to arrive. A false result means the queue stayed empty for the full wait;
// that is not an error and callers are expected to re-check their liveness
// flag and retry.
func (q *Queue) TryPop(timeout time.Duration) (Item, bool) {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Item{}, false
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Done marks one previously pushed item as fully processed. When the
// outstanding count reaches zero, Join is released.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished == 0 {
		return
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.drained.Broadcast()
	}
}

// Join blocks until every pushed item has been popped and marked done.
func (q *Queue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.unfinished > 0 {
		q.drained.Wait()
	}
}

// Drain removes every queued item without processing it, marking each done so
// Join cannot deadlock after a stop request. It returns the removed items;
// sentinels are drained along with real work.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := q.items
	q.items = nil

	if n := len(removed); n > 0 {
		if n > q.unfinished {
			n = q.unfinished
		}
		q.unfinished -= n
		if q.unfinished == 0 {
			q.drained.Broadcast()
		}
	}

	return removed
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
