// Package binder ties event subscriptions to the lifetime of their owner.
//
// A Binder records how to undo every subscription made through it. Closing
// the binder undoes them all, so handlers that capture the owner's state
// never run after the owner is gone:
//
//	b := binder.New(nil)
//	binder.On(b, win.Resized).BindFunc(func(s Size) { layout(s) })
//	binder.On(b, title.OnChanged).BindFunc(redraw)
//	defer b.Close()
//
// Binders form a tree. Closing a parent closes its children first, newest
// child first, and then undoes its own subscriptions in reverse order.
//
// Unbinding removes a handler from future dispatches. A dispatch that had
// already copied the handler list may still call it once.
package binder

import (
	"sync"

	"github.com/vango-dev/loom/pkg/event"
)

// Binder owns a set of subscriptions.
type Binder struct {
	parent *Binder

	// mu guards closed together with both records, so nothing can be
	// recorded after Close has taken them.
	mu       sync.Mutex
	closed   bool
	children []*Binder
	cleanups []func()
}

// New creates a binder. A non-nil parent closes it when the parent closes.
// A binder created under a closed parent starts closed.
func New(parent *Binder) *Binder {
	b := &Binder{parent: parent}
	if parent != nil && !parent.adopt(b) {
		b.closed = true
	}
	return b
}

// Parent returns the parent binder, or nil for a root.
func (b *Binder) Parent() *Binder {
	return b.parent
}

// IsClosed reports whether Close has been called.
func (b *Binder) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// adopt records child and reports false if b is already closed.
func (b *Binder) adopt(child *Binder) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.children = append(b.children, child)
	return true
}

func (b *Binder) removeChild(child *Binder) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, c := range b.children {
		if c == child {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

// OnCleanup records fn to run when the binder is cleared or closed.
// On a closed binder fn runs immediately.
func (b *Binder) OnCleanup(fn func()) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		fn()
		return
	}
	b.cleanups = append(b.cleanups, fn)
	b.mu.Unlock()
}

// Len returns the number of recorded cleanups.
func (b *Binder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cleanups)
}

// UnbindAll undoes every recorded subscription, newest first, and clears
// the record. The binder stays usable.
func (b *Binder) UnbindAll() {
	b.mu.Lock()
	cleanups := b.cleanups
	b.cleanups = nil
	b.mu.Unlock()

	runReverse(cleanups)
}

// Close closes all children, undoes every subscription and detaches the
// binder from its parent. Later subscriptions are undone as soon as they
// are made.
func (b *Binder) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	children, cleanups := b.children, b.cleanups
	b.children, b.cleanups = nil, nil
	b.mu.Unlock()

	if b.parent != nil {
		b.parent.removeChild(b)
	}
	for i := len(children) - 1; i >= 0; i-- {
		_ = children[i].Close()
	}
	runReverse(cleanups)
	return nil
}

func runReverse(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}

// Scope binds handlers to one event through a Binder.
type Scope[T any] struct {
	b *Binder
	e *event.Event[T]
}

// On returns a scope for subscribing to e through b.
func On[T any](b *Binder, e *event.Event[T]) Scope[T] {
	return Scope[T]{b: b, e: e}
}

// Bind subscribes h and records its removal.
func (s Scope[T]) Bind(h event.Handler[T]) event.Token {
	tok := s.e.Bind(h)
	s.b.OnCleanup(func() { s.e.Unbind(tok) })
	return tok
}

// BindFunc subscribes a handler that never claims the value.
func (s Scope[T]) BindFunc(fn func(T)) event.Token {
	return s.Bind(event.Func(fn))
}
