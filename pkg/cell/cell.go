package cell

import (
	"sync"

	"github.com/vango-dev/loom/pkg/event"
	"github.com/vango-dev/loom/pkg/queue"
)

// Option configures a Cell.
type Option[T any] func(*config[T])

type config[T any] struct {
	equal   func(a, b T) bool
	queue   *queue.Queue
	getter  func() T
	invoker func(T)
	name    string
}

// WithEqual sets the comparison used to drop redundant writes.
func WithEqual[T any](fn func(a, b T) bool) Option[T] {
	return func(c *config[T]) {
		c.equal = fn
	}
}

// WithQueue sets the queue both events dispatch on.
// Default: queue.Events().
func WithQueue[T any](q *queue.Queue) Option[T] {
	return func(c *config[T]) {
		c.queue = q
	}
}

// WithGetter redirects reads to fn.
func WithGetter[T any](fn func() T) Option[T] {
	return func(c *config[T]) {
		c.getter = fn
	}
}

// WithInvoker hands writes to fn instead of applying them.
func WithInvoker[T any](fn func(T)) Option[T] {
	return func(c *config[T]) {
		c.invoker = fn
	}
}

// WithName names the cell's events for diagnostics.
func WithName[T any](name string) Option[T] {
	return func(c *config[T]) {
		c.name = name
	}
}

// Cell is an observable value.
type Cell[T any] struct {
	// OnChange receives proposed values. A handler returning
	// event.Handled stops the write before it is applied.
	OnChange *event.Event[T]

	// OnChanged receives the old and new value after a write is applied.
	OnChanged *event.Event[event.Change[T]]

	storage Storage[T]
	equal   func(a, b T) bool

	getMu  sync.Mutex
	getter func() T

	invokeMu sync.Mutex
	invoker  func(T)
}

// New creates a cell with local storage holding initial.
func New[T any](initial T, opts ...Option[T]) *Cell[T] {
	return NewWithStorage[T](NewLocal(initial), opts...)
}

// NewCombined creates a cell with local storage plus a getter and an
// invoker. Either may be nil, in which case local storage serves that side.
func NewCombined[T any](initial T, getter func() T, invoker func(T), opts ...Option[T]) *Cell[T] {
	opts = append([]Option[T]{WithGetter(getter), WithInvoker(invoker)}, opts...)
	return New(initial, opts...)
}

// NewWithStorage creates a cell backed by s. A nil s means Unset.
func NewWithStorage[T any](s Storage[T], opts ...Option[T]) *Cell[T] {
	var cfg config[T]
	for _, opt := range opts {
		opt(&cfg)
	}
	if s == nil {
		s = Unset[T]{}
	}
	if cfg.equal == nil {
		cfg.equal = defaultEquals[T]
	}

	c := &Cell[T]{
		OnChange:  event.New[T](eventOptions(cfg, ".change")...),
		OnChanged: event.New[event.Change[T]](eventOptions(cfg, ".changed")...),
		storage:   s,
		equal:     cfg.equal,
		getter:    cfg.getter,
		invoker:   cfg.invoker,
	}
	c.OnChange.Bind(c.apply)
	return c
}

func eventOptions[T any](cfg config[T], suffix string) []event.Option {
	opts := []event.Option{event.WithQueue(cfg.queue)}
	if cfg.name != "" {
		opts = append(opts, event.WithName(cfg.name+suffix))
	}
	return opts
}

// apply is the default OnChange handler. It stays at the back of the
// handler list because it is bound first.
func (c *Cell[T]) apply(v T) event.Result {
	old := c.Get()
	c.storage.Store(v)
	c.OnChanged.Invoke(event.Change[T]{Old: old, New: v})
	return event.Skip
}

// Get returns the current value, from the getter if one is installed.
func (c *Cell[T]) Get() T {
	c.getMu.Lock()
	fn := c.getter
	c.getMu.Unlock()
	if fn != nil {
		return fn()
	}
	return c.storage.Load()
}

// Set writes v. Equal values are dropped. An installed invoker consumes
// the write; otherwise it is dispatched through OnChange and waits for it.
func (c *Cell[T]) Set(v T) {
	c.Change(false, v)
}

// Change writes v. With ignoreInvoker it skips both the equality check and
// the invoker and always dispatches through OnChange. It returns
// event.Handled when the write was consumed by the invoker or claimed by an
// OnChange handler.
func (c *Cell[T]) Change(ignoreInvoker bool, v T) event.Result {
	if ignoreInvoker {
		return c.OnChange.InvokeSync(v)
	}

	if c.equalsCurrent(v) {
		return event.Skip
	}

	c.invokeMu.Lock()
	fn := c.invoker
	c.invokeMu.Unlock()
	if fn != nil {
		fn(v)
		return event.Handled
	}
	return c.OnChange.InvokeSync(v)
}

// equalsCurrent compares v with the current value. A cell with neither
// storage nor getter has no current value, so nothing compares equal.
func (c *Cell[T]) equalsCurrent(v T) bool {
	c.getMu.Lock()
	hasGetter := c.getter != nil
	c.getMu.Unlock()
	if _, unset := c.storage.(Unset[T]); unset && !hasGetter {
		return false
	}
	return c.equal(c.Get(), v)
}

// Update sets the cell to fn applied to its current value. The read and
// the write are separate steps; concurrent writers may interleave.
func (c *Cell[T]) Update(fn func(T) T) {
	c.Set(fn(c.Get()))
}

// SetGetter installs or, with nil, removes the getter.
func (c *Cell[T]) SetGetter(fn func() T) {
	c.getMu.Lock()
	c.getter = fn
	c.getMu.Unlock()
}

// SetInvoker installs or, with nil, removes the invoker.
func (c *Cell[T]) SetInvoker(fn func(T)) {
	c.invokeMu.Lock()
	c.invoker = fn
	c.invokeMu.Unlock()
}
