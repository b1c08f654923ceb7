package queue

import (
	"context"
	"sync"
	"time"

	"github.com/petermattis/goid"
)

// inbox is the FIFO task list behind worker and caller queues.
type inbox struct {
	q *Queue

	mu     sync.Mutex
	idle   *sync.Cond // signalled when queued+busy drops to zero
	tasks  []*task
	busy   int
	closed bool

	wake    chan struct{}
	done    chan struct{}
	exited  chan struct{}
	started sync.WaitGroup
}

func newInbox(q *Queue) *inbox {
	b := &inbox{
		q:      q,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	b.idle = sync.NewCond(&b.mu)
	return b
}

func (b *inbox) enqueue(t *task) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrQueueClosed
	}
	b.tasks = append(b.tasks, t)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
	return nil
}

func (b *inbox) processIfCurrent() bool {
	if !b.q.IsCurrent() {
		return false
	}
	b.runAll()
	return true
}

func (b *inbox) drain() {
	if b.q.kind == KindWorker && !b.q.IsCurrent() {
		return
	}
	b.runAll()
}

// runAll pops and runs tasks one at a time until the inbox is empty,
// including tasks queued while draining.
func (b *inbox) runAll() {
	for {
		b.mu.Lock()
		if len(b.tasks) == 0 {
			b.mu.Unlock()
			return
		}
		t := b.tasks[0]
		b.tasks[0] = nil
		b.tasks = b.tasks[1:]
		b.busy++
		b.mu.Unlock()

		b.q.run(t)

		b.mu.Lock()
		b.busy--
		if len(b.tasks) == 0 && b.busy == 0 {
			b.idle.Broadcast()
		}
		b.mu.Unlock()
	}
}

func (b *inbox) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.tasks) + b.busy
}

func (b *inbox) wait(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.idle.Broadcast()
		b.mu.Unlock()
	})
	defer stop()

	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.tasks)+b.busy > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.idle.Wait()
	}
	return nil
}

// serve is the body of a worker goroutine.
func (b *inbox) serve() {
	b.q.owner.Store(goid.Get())
	b.started.Done()
	defer close(b.exited)
	_ = b.pump(context.Background())
	b.q.logger.Debug("worker stopped")
}

// pump drains the inbox whenever it is woken, runs the loop function on
// every tick, and returns once ctx is done or the inbox is closed.
func (b *inbox) pump(ctx context.Context) error {
	var tick <-chan time.Time
	if b.q.loop != nil {
		ticker := time.NewTicker(b.q.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		b.runAll()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			b.runAll()
			return nil
		case <-b.wake:
		case <-tick:
			b.q.runLoop()
		}
	}
}

func (b *inbox) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.done)

	if b.q.kind == KindWorker && !b.q.IsCurrent() {
		<-b.exited
	}
}

func (b *inbox) stats(*Stats) {}
