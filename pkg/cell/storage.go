package cell

import (
	"errors"
	"sync"

	lerrors "github.com/vango-dev/loom/internal/errors"
)

// ErrNoStorage is the panic value raised when a cell without storage,
// getter or invoker is read or written.
var ErrNoStorage = errors.New("loom: cell has no storage")

// Storage holds a cell's value.
type Storage[T any] interface {
	Load() T
	Store(v T)
}

// Local keeps the value in a mutex-guarded field.
type Local[T any] struct {
	mu sync.Mutex
	v  T
}

// NewLocal returns local storage holding v.
func NewLocal[T any](v T) *Local[T] {
	return &Local[T]{v: v}
}

// Load returns the stored value.
func (l *Local[T]) Load() T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v
}

// Store replaces the stored value.
func (l *Local[T]) Store(v T) {
	l.mu.Lock()
	l.v = v
	l.mu.Unlock()
}

// Unset is storage that refuses every access. Cells built on it must get
// their value from a getter and give writes to an invoker.
type Unset[T any] struct{}

// Load panics with a configuration error.
func (Unset[T]) Load() T {
	panic(noStorage("read"))
}

// Store panics with a configuration error.
func (Unset[T]) Store(T) {
	panic(noStorage("write"))
}

func noStorage(op string) *lerrors.Error {
	return lerrors.New("E001").
		WithDetail("cannot " + op + " a cell that has no storage").
		WithSuggestion("Create the cell with cell.New, or install a getter and an invoker").
		Wrap(ErrNoStorage)
}
