package queue

import (
	"context"
	"sync"
)

// pool hands each task to an idle worker goroutine, starting a new one when
// the idle cache is empty. A worker that finishes a task goes back to the
// cache if there is room and is told to stop otherwise.
type pool struct {
	q     *Queue
	limit int

	mu       sync.Mutex
	drained  *sync.Cond // signalled when inflight drops to zero
	idle     []*poolWorker
	inflight int
	live     int
	closed   bool
}

type poolWorker struct {
	tasks chan *task
}

func newPool(q *Queue, limit int) *pool {
	p := &pool{q: q, limit: limit}
	p.drained = sync.NewCond(&p.mu)
	return p
}

func (p *pool) enqueue(t *task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrQueueClosed
	}
	p.inflight++
	var w *poolWorker
	if n := len(p.idle); n > 0 {
		w = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	} else {
		w = &poolWorker{tasks: make(chan *task, 1)}
		p.live++
		go p.serve(w)
	}
	p.mu.Unlock()

	w.tasks <- t
	return nil
}

func (p *pool) serve(w *poolWorker) {
	for t := range w.tasks {
		p.q.run(t)
		p.release(w)
	}
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
}

func (p *pool) release(w *poolWorker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed && len(p.idle) < p.limit {
		p.idle = append(p.idle, w)
	} else {
		close(w.tasks)
	}
	p.inflight--
	if p.inflight == 0 {
		p.drained.Broadcast()
	}
}

// A pool never runs work inline: a task calling back into its own pool is
// handed to another worker.
func (p *pool) processIfCurrent() bool { return false }

func (p *pool) drain() {
	if err := p.wait(context.Background()); err != nil {
		p.q.logger.Warn("drain skipped", "error", err)
	}
}

func (p *pool) pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inflight
}

func (p *pool) wait(ctx context.Context) error {
	if p.q.IsCurrent() {
		return ErrWaitOnSelf
	}
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.drained.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.inflight > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.drained.Wait()
	}
	return nil
}

func (p *pool) close() {
	p.mu.Lock()
	p.closed = true
	for _, w := range p.idle {
		close(w.tasks)
	}
	p.idle = nil
	p.mu.Unlock()

	if !p.q.IsCurrent() {
		_ = p.wait(context.Background())
	}
}

func (p *pool) stats(s *Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s.IdleWorkers = len(p.idle)
	s.LiveWorkers = p.live
}
