package event

import (
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/loom/pkg/queue"
)

func TestInvokeRunsHandlers(t *testing.T) {
	e := New[int](WithQueue(queue.NewDirect()))

	var got []int
	e.BindFunc(func(v int) { got = append(got, v) })
	e.Invoke(5)

	if len(got) != 1 || got[0] != 5 {
		t.Errorf("got = %v, want [5]", got)
	}
}

func TestNewestHandlerFirst(t *testing.T) {
	e := New[string](WithQueue(queue.NewDirect()))

	var order []string
	e.BindFunc(func(string) { order = append(order, "first") })
	e.BindFunc(func(string) { order = append(order, "second") })
	e.InvokeSync("x")

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("order = %v, want [second first]", order)
	}
}

func TestHandledShortCircuits(t *testing.T) {
	e := New[int](WithQueue(queue.NewDirect()))

	var h1, h2 int
	e.Bind(func(int) Result {
		h1++
		return Skip
	})
	e.Bind(func(int) Result {
		h2++
		return Handled
	})

	if res := e.InvokeSync(1); res != Handled {
		t.Errorf("InvokeSync = %v, want Handled", res)
	}
	if h2 != 1 {
		t.Errorf("front handler calls = %d, want 1", h2)
	}
	if h1 != 0 {
		t.Errorf("handler behind Handled ran %d times, want 0", h1)
	}
}

func TestInvokeSyncAggregate(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Result
	}{
		{"no handlers", nil, Skip},
		{"all skip", []Result{Skip, Skip}, Skip},
		{"one handled", []Result{Skip, Handled, Skip}, Handled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New[int](WithQueue(queue.NewDirect()))
			for _, r := range tt.results {
				r := r
				e.Bind(func(int) Result { return r })
			}
			if got := e.InvokeSync(0); got != tt.want {
				t.Errorf("InvokeSync = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnbindPreventsFutureDispatch(t *testing.T) {
	e := New[int](WithQueue(queue.NewDirect()))

	calls := 0
	tok := e.BindFunc(func(int) { calls++ })
	e.Invoke(1)
	if !e.Unbind(tok) {
		t.Fatal("Unbind() = false for a bound token")
	}
	e.Invoke(2)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if e.Unbind(tok) {
		t.Error("second Unbind() should report false")
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestDispatchOnBoundQueue(t *testing.T) {
	w := queue.NewWorker()
	defer w.Close()
	e := New[int](WithQueue(w))

	onQueue := make(chan bool, 1)
	e.BindFunc(func(int) { onQueue <- w.IsCurrent() })
	e.Invoke(1)

	select {
	case ok := <-onQueue:
		if !ok {
			t.Error("handler did not run on the bound queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestInvokeSyncWaits(t *testing.T) {
	w := queue.NewWorker()
	defer w.Close()
	e := New[int](WithQueue(w))

	var mu sync.Mutex
	sum := 0
	e.BindFunc(func(v int) {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		sum += v
		mu.Unlock()
	})
	e.InvokeSync(3)

	mu.Lock()
	defer mu.Unlock()
	if sum != 3 {
		t.Errorf("sum = %d after InvokeSync, want 3", sum)
	}
}

func TestInvokeSyncFromOwnQueue(t *testing.T) {
	w := queue.NewWorker()
	defer w.Close()
	e := New[int](WithQueue(w))
	e.Bind(func(int) Result { return Handled })

	got := queue.Call(w, func() Result { return e.InvokeSync(1) })
	if got != Handled {
		t.Errorf("nested InvokeSync = %v, want Handled", got)
	}
}

func TestBindDuringDispatchUsesSnapshot(t *testing.T) {
	e := New[int](WithQueue(queue.NewDirect()))

	late := 0
	e.BindFunc(func(int) {
		e.BindFunc(func(int) { late++ })
	})
	e.Invoke(1)
	if late != 0 {
		t.Errorf("handler bound during dispatch ran %d times in that dispatch", late)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
}

func TestUnbindDuringDispatchStillCompletesSnapshot(t *testing.T) {
	e := New[int](WithQueue(queue.NewDirect()))

	second := 0
	var tok Token
	e.BindFunc(func(int) { second++ })
	tok = e.BindFunc(func(int) {})
	e.BindFunc(func(int) { e.Unbind(tok) })

	e.Invoke(1)
	if second != 1 {
		t.Errorf("snapshotted handler calls = %d, want 1", second)
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}
}

func TestDefaultQueue(t *testing.T) {
	queue.ResetDefaults()
	defer queue.ResetDefaults()

	e := New[int]()
	if e.Queue() != queue.Events() {
		t.Error("event should default to queue.Events()")
	}
}

func TestResultString(t *testing.T) {
	if Skip.String() != "Skip" || Handled.String() != "Handled" {
		t.Errorf("String() = %q, %q", Skip.String(), Handled.String())
	}
	if Result(9).String() != "Unknown" {
		t.Errorf("Result(9).String() = %q", Result(9).String())
	}
}
