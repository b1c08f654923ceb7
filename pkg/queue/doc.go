// Package queue provides execution contexts that marshal work onto an
// owning goroutine.
//
// A Queue is a handle over one scheduling strategy:
//
//   - NewWorker: a dedicated goroutine drains the inbox in FIFO order
//   - NewCaller: tasks wait until the owning goroutine pumps them with
//     ProcessQueue, or hands itself over with Run
//   - NewDirect: tasks run inline on the submitting goroutine
//   - NewPool: each task borrows a worker from a small idle cache
//
// # Submission
//
// Call blocks until the task has run and returns its result:
//
//	n := queue.Call(q, func() int { return compute() })
//
// When the caller is already executing on q, Call drains anything queued
// ahead of it and then runs the function inline. A handler that re-enters
// its own queue therefore never waits on itself.
//
// Async always enqueues and returns a Future that may be awaited later:
//
//	f := queue.Async(q, load)
//	v, err := f.Await(ctx)
//
// Post enqueues a void function and returns immediately. Invoke is the
// void form of Call and accepts LaunchAsync to behave like Post.
//
// # Panics
//
// A panic inside a task is recovered on the executing goroutine, so a
// worker survives it. Blocking callers see the original panic value
// re-raised on their own goroutine. Fire-and-forget tasks report the
// panic to the queue's PanicHandler, which logs through slog by default.
//
// # Defaults
//
// Main returns the process-wide caller queue and Events returns the
// process-wide queue used by event hubs that were not given one. Both are
// created on first use. Tests call ResetDefaults to start clean.
package queue
