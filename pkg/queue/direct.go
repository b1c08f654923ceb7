package queue

import "context"

// direct runs every task on the submitting goroutine.
type direct struct {
	q *Queue
}

func (d *direct) enqueue(t *task) error {
	d.q.run(t)
	return nil
}

func (d *direct) processIfCurrent() bool         { return true }
func (d *direct) drain()                         {}
func (d *direct) pending() int                   { return 0 }
func (d *direct) wait(ctx context.Context) error { return nil }
func (d *direct) close()                         {}
func (d *direct) stats(*Stats)                   {}
