package ui

import "sync"

// callQueue runs controller calls one at a time in the order they were
// queued. Push never blocks, so Update can queue work that ends up sending
// messages back to the program.
type callQueue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newCallQueue() *callQueue {
	q := &callQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *callQueue) push(fn func()) {
	select {
	case <-q.done:
		return
	default:
	}
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *callQueue) close() {
	q.once.Do(func() { close(q.done) })
}

func (q *callQueue) loop() {
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}
		for {
			q.mu.Lock()
			if len(q.pending) == 0 {
				q.mu.Unlock()
				break
			}
			fn := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			fn()
		}
	}
}
