package cell

import (
	"errors"
	"sync"
	"testing"
	"time"

	lerrors "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/event"
	"github.com/vango-dev/loom/pkg/queue"
)

func direct[T any]() Option[T] {
	return WithQueue[T](queue.NewDirect())
}

func TestGetSet(t *testing.T) {
	c := New(5, direct[int]())
	if c.Get() != 5 {
		t.Fatalf("Get() = %d, want 5", c.Get())
	}
	c.Set(7)
	if c.Get() != 7 {
		t.Errorf("Get() = %d, want 7", c.Get())
	}
}

func TestEqualSetDoesNotNotify(t *testing.T) {
	c := New(5, direct[int]())

	calls := 0
	c.OnChanged.BindFunc(func(event.Change[int]) { calls++ })
	c.Set(5)

	if calls != 0 {
		t.Errorf("onchanged calls = %d, want 0", calls)
	}
}

func TestChangedPayload(t *testing.T) {
	c := New(5, direct[int]())

	var got []event.Change[int]
	c.OnChanged.BindFunc(func(ch event.Change[int]) { got = append(got, ch) })
	c.Set(7)

	if len(got) != 1 {
		t.Fatalf("onchanged calls = %d, want 1", len(got))
	}
	if got[0].Old != 5 || got[0].New != 7 {
		t.Errorf("payload = %+v, want {Old:5 New:7}", got[0])
	}
	if c.Get() != 7 {
		t.Errorf("Get() = %d, want 7", c.Get())
	}
}

func TestInvokerInterceptsWrite(t *testing.T) {
	var seen []int
	c := NewCombined(5, nil, func(v int) { seen = append(seen, v) }, direct[int]())

	changed := 0
	c.OnChanged.BindFunc(func(event.Change[int]) { changed++ })
	c.Set(9)

	if len(seen) != 1 || seen[0] != 9 {
		t.Errorf("invoker saw %v, want [9]", seen)
	}
	if c.Get() != 5 {
		t.Errorf("Get() = %d, local storage should stay 5", c.Get())
	}
	if changed != 0 {
		t.Errorf("onchanged calls = %d, want 0", changed)
	}
}

func TestChangeIgnoreInvoker(t *testing.T) {
	invoked := 0
	c := NewCombined(5, nil, func(int) { invoked++ }, direct[int]())

	var got []event.Change[int]
	c.OnChanged.BindFunc(func(ch event.Change[int]) { got = append(got, ch) })
	c.Change(true, 9)

	if invoked != 0 {
		t.Errorf("invoker calls = %d, want 0", invoked)
	}
	if c.Get() != 9 {
		t.Errorf("Get() = %d, want 9", c.Get())
	}
	if len(got) != 1 || got[0].Old != 5 || got[0].New != 9 {
		t.Errorf("onchanged = %+v, want [{5 9}]", got)
	}
}

func TestChangeIgnoreInvokerSkipsEquality(t *testing.T) {
	// The getter already reports the new value, as when an owning
	// resource changed on its own.
	external := 9
	c := NewCombined(5, func() int { return external }, func(int) {}, direct[int]())

	changed := 0
	c.OnChanged.BindFunc(func(event.Change[int]) { changed++ })
	c.Change(true, 9)

	if changed != 1 {
		t.Errorf("onchanged calls = %d, want 1", changed)
	}
}

func TestGetterRedirectsReads(t *testing.T) {
	c := New(1, direct[int]())
	c.SetGetter(func() int { return 42 })
	if c.Get() != 42 {
		t.Errorf("Get() = %d, want 42", c.Get())
	}

	// Equality uses the getter's value.
	c.SetInvoker(func(int) { t.Error("write equal to getter value reached the invoker") })
	c.Set(42)

	c.SetGetter(nil)
	if c.Get() != 1 {
		t.Errorf("Get() = %d after removing getter, want 1", c.Get())
	}
}

func TestOnChangeHandlerCanVeto(t *testing.T) {
	c := New(1, direct[int]())
	c.OnChange.Bind(func(v int) event.Result {
		if v < 0 {
			return event.Handled
		}
		return event.Skip
	})

	if res := c.Change(false, -3); res != event.Handled {
		t.Errorf("Change(-3) = %v, want Handled", res)
	}
	if c.Get() != 1 {
		t.Errorf("Get() = %d, vetoed write should not apply", c.Get())
	}
	c.Set(4)
	if c.Get() != 4 {
		t.Errorf("Get() = %d, want 4", c.Get())
	}
}

func TestUpdate(t *testing.T) {
	c := New(10, direct[int]())
	c.Update(func(n int) int { return n + 5 })
	if c.Get() != 15 {
		t.Errorf("Get() = %d, want 15", c.Get())
	}
}

func TestWithEqual(t *testing.T) {
	type point struct{ X, Y int }
	c := New(point{1, 1},
		direct[point](),
		WithEqual(func(a, b point) bool { return a.X == b.X }),
	)

	changed := 0
	c.OnChanged.BindFunc(func(event.Change[point]) { changed++ })
	c.Set(point{1, 99})
	if changed != 0 {
		t.Errorf("custom equality ignored: %d notifications", changed)
	}
	c.Set(point{2, 0})
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
}

func TestDeepEqualSlices(t *testing.T) {
	c := New([]string{"a"}, direct[[]string]())
	changed := 0
	c.OnChanged.BindFunc(func(event.Change[[]string]) { changed++ })

	c.Set([]string{"a"})
	if changed != 0 {
		t.Errorf("equal slice triggered %d notifications", changed)
	}
}

func TestNoStoragePanics(t *testing.T) {
	tests := []struct {
		name string
		op   func(c *Cell[int])
	}{
		{"get", func(c *Cell[int]) { c.Get() }},
		{"set", func(c *Cell[int]) { c.Set(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithStorage[int](nil, direct[int]())
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok {
					t.Fatalf("recover() = %v, want error", r)
				}
				if !errors.Is(err, ErrNoStorage) {
					t.Errorf("panic %v is not ErrNoStorage", err)
				}
				if !errors.Is(err, lerrors.New("E001")) {
					t.Errorf("panic %v does not carry code E001", err)
				}
			}()
			tt.op(c)
			t.Fatal("expected panic")
		})
	}
}

func TestNoStorageWithGetterAndInvoker(t *testing.T) {
	var stored int
	c := NewWithStorage[int](nil,
		direct[int](),
		WithGetter(func() int { return stored }),
		WithInvoker(func(v int) { stored = v }),
	)
	c.Set(3)
	if c.Get() != 3 {
		t.Errorf("Get() = %d, want 3", c.Get())
	}
}

func TestEventsOnWorkerQueue(t *testing.T) {
	w := queue.NewWorker()
	defer w.Close()

	c := New("a", WithQueue[string](w), WithName[string]("title"))
	if c.OnChange.Name() != "title.change" {
		t.Errorf("OnChange.Name() = %q", c.OnChange.Name())
	}

	var mu sync.Mutex
	var got event.Change[string]
	done := make(chan struct{})
	c.OnChanged.BindFunc(func(ch event.Change[string]) {
		mu.Lock()
		got = ch
		mu.Unlock()
		close(done)
	})
	c.Set("b")

	// Set waits for the apply; OnChanged is posted after it.
	if c.Get() != "b" {
		t.Errorf("Get() = %q right after Set, want b", c.Get())
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onchanged not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	if got.Old != "a" || got.New != "b" {
		t.Errorf("payload = %+v", got)
	}
}
