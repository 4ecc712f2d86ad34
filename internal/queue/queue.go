package queue

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/linehawk/linehawk/internal/task"
)

var (
	// ErrFull signals backpressure; the caller should retry or back off.
	ErrFull = errors.New("queue: full")
	// ErrEmpty means no task was available.
	ErrEmpty = errors.New("queue: empty")
	// ErrContended means a steal attempt found the lock held. Steal never
	// waits; the thief moves on to the next queue.
	ErrContended = errors.New("queue: contended")
	// ErrClosed means the queue has been shut down.
	ErrClosed = errors.New("queue: closed")
)

// Queue is a fixed-capacity ring buffer of tasks. The owning worker pops
// from the head, preserving submission order; idle workers steal from the
// tail through a non-blocking lock attempt.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	tasks    []*task.Task
	head     int
	tail     int
	occupied int
	closed   bool
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	q := &Queue{tasks: make([]*task.Task, capacity)}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return len(q.tasks)
}

// Len returns the current occupancy.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.occupied
}

// TryPush enqueues without blocking, returning ErrFull when no slot is free.
func (q *Queue) TryPush(t *task.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if q.occupied == len(q.tasks) {
		return ErrFull
	}
	q.enqueue(t)
	return nil
}

// Push enqueues, blocking until a slot frees up, the timeout elapses, or the
// queue is closed. A zero timeout blocks indefinitely.
func (q *Queue) Push(t *task.Task, timeout time.Duration) error {
	var deadline time.Time
	var timer *time.Timer
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
		// The timer only wakes waiters so the deadline is re-checked;
		// sync.Cond has no timed wait.
		timer = time.AfterFunc(timeout, q.notFull.Broadcast)
		defer timer.Stop()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return ErrClosed
		}
		if q.occupied < len(q.tasks) {
			q.enqueue(t)
			return nil
		}
		if timeout > 0 && !time.Now().Before(deadline) {
			return ErrFull
		}
		q.notFull.Wait()
	}
}

// Pop removes the task at the head. It is intended for the queue's owning
// worker and never blocks.
func (q *Queue) Pop() (*task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.occupied == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		return nil, ErrEmpty
	}
	t := q.tasks[q.head]
	q.tasks[q.head] = nil
	q.head = (q.head + 1) % len(q.tasks)
	q.occupied--
	q.checkInvariant()
	q.notFull.Signal()
	return t, nil
}

// Steal removes the task at the tail. The lock is only tried, never waited
// on: a held lock yields ErrContended immediately so the thief stays live.
func (q *Queue) Steal() (*task.Task, error) {
	if !q.mu.TryLock() {
		return nil, ErrContended
	}
	defer q.mu.Unlock()
	if q.occupied == 0 {
		if q.closed {
			return nil, ErrClosed
		}
		return nil, ErrEmpty
	}
	q.tail = (q.tail - 1 + len(q.tasks)) % len(q.tasks)
	t := q.tasks[q.tail]
	q.tasks[q.tail] = nil
	q.occupied--
	q.checkInvariant()
	q.notFull.Signal()
	return t, nil
}

// Close marks the queue closed and wakes every blocked pusher. Tasks already
// queued remain poppable so shutdown can drain them.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	q.notEmpty.Broadcast()
}

func (q *Queue) enqueue(t *task.Task) {
	q.tasks[q.tail] = t
	q.tail = (q.tail + 1) % len(q.tasks)
	q.occupied++
	q.checkInvariant()
	q.notEmpty.Signal()
}

// checkInvariant panics when the occupancy count leaves its bounds. The
// caller must hold the lock. A violation here is an internal bug, never a
// caller error.
func (q *Queue) checkInvariant() {
	if q.occupied < 0 || q.occupied > len(q.tasks) {
		panic(fmt.Sprintf("queue: occupancy %d out of bounds [0,%d]", q.occupied, len(q.tasks)))
	}
}
