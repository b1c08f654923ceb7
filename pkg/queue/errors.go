package queue

import (
	"errors"
	"fmt"

	lerrors "github.com/vango-dev/loom/internal/errors"
)

// ErrQueueClosed is returned when work is submitted to a queue after Close.
var ErrQueueClosed error = lerrors.New("E002").
	WithSuggestion("Close queues only after every producer has stopped submitting")

// ErrNotPumped is returned by Run for queues that own their goroutines.
var ErrNotPumped = errors.New("loom: queue is not caller-pumped")

// ErrWaitOnSelf is returned when a pool task waits for its own pool to
// drain. The in-flight count includes the waiting task, so the wait could
// never finish.
var ErrWaitOnSelf = errors.New("loom: pool task waiting on its own pool")

// PanicError carries a panic recovered while a task was executing.
type PanicError struct {
	Queue string
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("loom: task on queue %q panicked: %v", e.Queue, e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
