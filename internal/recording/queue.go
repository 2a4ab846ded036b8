package recording

import (
	"sync"

	"github.com/owlcms/recorder/internal/media"
)

// ItemKind tells the worker what a queue item carries.
type ItemKind int

const (
	ItemFrame ItemKind = iota
	// ItemRate announces the source frame rate before the first frame.
	ItemRate
	// ItemEnd is the end of stream sentinel.
	ItemEnd
)

// Item is one entry of a Queue.
type Item struct {
	Kind  ItemKind
	Frame *media.Frame
	Rate  float64
}

// Queue hands frames from one capture goroutine to one record worker, in order.
// Frames pushed while the queue is full are dropped and counted; control items
// (rate announcement and sentinel) are always accepted, so neither Push nor Close blocks.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []Item
	capacity int
	nframes  int
	closed   bool
	dropped  uint64
}

// NewQueue returns an empty queue holding at most capacity frames.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// AnnounceRate queues the source frame rate. It returns false once the queue is closed.
func (q *Queue) AnnounceRate(rate float64) bool {
	return q.put(Item{Kind: ItemRate, Rate: rate}, true)
}

// Push queues a frame. It returns false if the queue is closed or full.
func (q *Queue) Push(f *media.Frame) bool {
	return q.put(Item{Kind: ItemFrame, Frame: f}, false)
}

func (q *Queue) put(it Item, control bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if !control {
		if q.nframes >= q.capacity {
			q.dropped++
			return false
		}
		q.nframes++
	}
	q.items = append(q.items, it)
	q.cond.Signal()
	return true
}

// Close appends the end of stream sentinel and rejects further pushes. Only the first call has an effect.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = append(q.items, Item{Kind: ItemEnd})
	q.cond.Signal()
}

// Pop blocks until an item is available. After the sentinel was returned it keeps returning it.
func (q *Queue) Pop() Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return Item{Kind: ItemEnd}
		}
		q.cond.Wait()
	}
	it := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]
	if it.Kind == ItemFrame {
		q.nframes--
	}
	return it
}

// Dropped returns the number of frames rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Len returns the number of queued items, control items included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
