// Package queue orders work per key. Tickets for the same key are served
// in the order they were taken; different keys never wait on each other.
package queue

import (
	"context"
	"sync"
)

type Keyed struct {
	mu    sync.Mutex
	tails map[int64]chan struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{tails: make(map[int64]chan struct{})}
}

// Ticket is a place in line for one key. Every ticket must be finished
// with Done, whether or not Wait succeeded.
type Ticket struct {
	q      *Keyed
	key    int64
	prev   chan struct{}
	done   chan struct{}
	served bool
	once   sync.Once
}

// Enqueue takes the next place in line for key without blocking.
func (q *Keyed) Enqueue(key int64) *Ticket {
	t := &Ticket{q: q, key: key, done: make(chan struct{})}

	q.mu.Lock()
	t.prev = q.tails[key]
	q.tails[key] = t.done
	q.mu.Unlock()

	return t
}

// Wait blocks until every earlier ticket for the same key is done or ctx
// ends. A ticket with work ahead of it fails at once if ctx is already done.
func (t *Ticket) Wait(ctx context.Context) error {
	if t.prev == nil {
		t.served = true
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-t.prev:
		t.served = true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done lets the next ticket for the key proceed. A ticket that was never
// served still hands over only after its predecessor finishes.
func (t *Ticket) Done() {
	t.once.Do(func() {
		if t.served || t.prev == nil {
			t.finish()
			return
		}
		go func() {
			<-t.prev
			t.finish()
		}()
	})
}

func (t *Ticket) finish() {
	t.q.mu.Lock()
	if t.q.tails[t.key] == t.done {
		delete(t.q.tails, t.key)
	}
	t.q.mu.Unlock()
	close(t.done)
}

// Len reports how many keys currently have work queued or running.
func (q *Keyed) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
