package event

import (
	"sync"

	"github.com/vango-dev/loom/pkg/queue"
)

// Result tells the dispatcher whether a handler claimed the value.
type Result uint8

const (
	// Skip passes the value on to the next handler.
	Skip Result = iota
	// Handled stops the dispatch.
	Handled
)

// String returns a human-readable name for the result.
func (r Result) String() string {
	switch r {
	case Skip:
		return "Skip"
	case Handled:
		return "Handled"
	default:
		return "Unknown"
	}
}

// Handler receives an event value.
type Handler[T any] func(T) Result

// Func adapts a handler that never claims the value.
func Func[T any](fn func(T)) Handler[T] {
	return func(v T) Result {
		fn(v)
		return Skip
	}
}

// Token identifies a bound handler. Tokens are never reused within an
// event, so a stale token cannot remove a later handler.
type Token uint64

// Change is the payload of a change notification.
type Change[T any] struct {
	Old T
	New T
}

// Option configures an Event.
type Option func(*options)

type options struct {
	queue *queue.Queue
	name  string
}

// WithQueue sets the queue handlers run on. Default: queue.Events().
func WithQueue(q *queue.Queue) Option {
	return func(o *options) {
		o.queue = q
	}
}

// WithName names the event for diagnostics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

type binding[T any] struct {
	token Token
	fn    Handler[T]
}

// Event is a list of handlers bound to one queue.
type Event[T any] struct {
	name string
	q    *queue.Queue

	mu       sync.Mutex
	handlers []binding[T] // newest first
	last     Token
}

// New creates an event.
func New[T any](opts ...Option) *Event[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.queue == nil {
		o.queue = queue.Events()
	}
	return &Event[T]{name: o.name, q: o.queue}
}

// Name returns the event name.
func (e *Event[T]) Name() string { return e.name }

// Queue returns the queue handlers run on.
func (e *Event[T]) Queue() *queue.Queue { return e.q }

// Bind registers h in front of all existing handlers.
func (e *Event[T]) Bind(h Handler[T]) Token {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.last++
	tok := e.last
	handlers := make([]binding[T], 0, len(e.handlers)+1)
	handlers = append(handlers, binding[T]{token: tok, fn: h})
	e.handlers = append(handlers, e.handlers...)
	return tok
}

// BindFunc registers a handler that never claims the value.
func (e *Event[T]) BindFunc(fn func(T)) Token {
	return e.Bind(Func(fn))
}

// Unbind removes the handler registered under tok. It reports whether a
// handler was removed. A dispatch that already took its snapshot may still
// call the handler once after Unbind returns.
func (e *Event[T]) Unbind(tok Token) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, b := range e.handlers {
		if b.token != tok {
			continue
		}
		handlers := make([]binding[T], 0, len(e.handlers)-1)
		handlers = append(handlers, e.handlers[:i]...)
		e.handlers = append(handlers, e.handlers[i+1:]...)
		return true
	}
	return false
}

// Len returns the number of bound handlers.
func (e *Event[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

func (e *Event[T]) snapshot() []binding[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.handlers) == 0 {
		return nil
	}
	snap := make([]binding[T], len(e.handlers))
	copy(snap, e.handlers)
	return snap
}

// Invoke dispatches v on the event's queue and returns without waiting.
func (e *Event[T]) Invoke(v T) {
	snap := e.snapshot()
	if snap == nil {
		return
	}
	e.q.Post(func() { dispatch(snap, v) })
}

// InvokeSync dispatches v on the event's queue and waits for the result.
// It returns Handled if any handler claimed the value. Called from the
// event's own queue it dispatches inline.
func (e *Event[T]) InvokeSync(v T) Result {
	snap := e.snapshot()
	if snap == nil {
		return Skip
	}
	return queue.Call(e.q, func() Result { return dispatch(snap, v) })
}

func dispatch[T any](handlers []binding[T], v T) Result {
	for _, b := range handlers {
		if b.fn(v) == Handled {
			return Handled
		}
	}
	return Skip
}
