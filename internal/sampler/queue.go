package sampler

import "sync"

// queue is a bounded FIFO of samples for one controller. When full, the
// oldest samples are evicted to make room for new ones; the caller is told
// how many were shed so it can report one overflow event per batch.
type queue struct {
	mu       sync.Mutex
	buf      []Sample
	head     int
	length   int
	capacity int

	// notify wakes a blocked Poll when samples arrive.
	notify chan struct{}
}

func newQueue(capacity int) *queue {
	return &queue{
		buf:      make([]Sample, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// push appends a sample, evicting the oldest if the queue is full.
// Returns the number of evicted samples (0 or 1).
func (q *queue) push(s Sample) int {
	q.mu.Lock()
	evicted := 0
	if q.length == q.capacity {
		q.head = (q.head + 1) % q.capacity
		q.length--
		evicted = 1
	}
	q.buf[(q.head+q.length)%q.capacity] = s
	q.length++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return evicted
}

// drain removes and returns all queued samples in arrival order.
func (q *queue) drain() []Sample {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == 0 {
		return nil
	}
	out := make([]Sample, q.length)
	for i := 0; i < q.length; i++ {
		out[i] = q.buf[(q.head+i)%q.capacity]
	}
	q.head = 0
	q.length = 0
	return out
}

// snapshot returns all queued samples in arrival order without removing
// them. The background loop remains the only consumer.
func (q *queue) snapshot() []Sample {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == 0 {
		return nil
	}
	out := make([]Sample, q.length)
	for i := 0; i < q.length; i++ {
		out[i] = q.buf[(q.head+i)%q.capacity]
	}
	return out
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}
