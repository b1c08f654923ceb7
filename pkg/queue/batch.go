package queue

import "sync"

// Batch collects deferred callbacks and runs them later in the order they
// were pushed.
type Batch struct {
	mu  sync.Mutex
	fns []func()
}

// Push appends fn to the batch.
func (b *Batch) Push(fn func()) {
	b.mu.Lock()
	b.fns = append(b.fns, fn)
	b.mu.Unlock()
}

// Len returns the number of callbacks waiting.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fns)
}

// Process runs every waiting callback on the calling goroutine, including
// callbacks pushed while processing.
func (b *Batch) Process() {
	for {
		b.mu.Lock()
		if len(b.fns) == 0 {
			b.mu.Unlock()
			return
		}
		fn := b.fns[0]
		b.fns[0] = nil
		b.fns = b.fns[1:]
		b.mu.Unlock()

		fn()
	}
}

// Flush processes the batch as one task on q and then calls ondone there.
// If q is nil the batch is processed on a new goroutine.
func (b *Batch) Flush(q *Queue, ondone func()) {
	run := func() {
		b.Process()
		if ondone != nil {
			ondone()
		}
	}
	if q == nil {
		go run()
		return
	}
	q.Post(run)
}
