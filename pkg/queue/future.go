package queue

import (
	"context"
	"errors"
	"sync"
)

// Future is the shared result of a task submitted with Async.
// Any number of goroutines may wait on it.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

func (f *Future[T]) fail(err error) {
	var zero T
	f.resolve(zero, err)
}

// Done is closed once the task has run, panicked, or was rejected.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get blocks until the result is available and returns it.
// A panic raised by the task is re-raised here with its original value.
// A rejected submission panics with ErrQueueClosed.
func (f *Future[T]) Get() T {
	<-f.done
	if f.err != nil {
		var pe *PanicError
		if errors.As(f.err, &pe) {
			panic(pe.Value)
		}
		panic(f.err)
	}
	return f.val
}

// Await blocks until the result is available or ctx is done.
// Task panics are returned as *PanicError.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
