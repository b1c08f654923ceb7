// Package cell provides observable values with pluggable storage.
//
// A Cell holds one value of type T and two events. OnChange receives a
// proposed value before it is applied; its last handler is the default
// one, which stores the value and fires OnChanged with the old and new
// values. Handlers bound to OnChange run before the default handler and
// can veto a write by returning event.Handled.
//
//	width := cell.New(640)
//	width.OnChanged.BindFunc(func(c event.Change[int]) {
//	    log.Printf("width %d -> %d", c.Old, c.New)
//	})
//	width.Set(800)
//
// Writes equal to the current value are dropped without notification.
//
// # Storage Delegation
//
// A getter redirects reads and an invoker intercepts writes, so the value
// can live in a resource owned by someone else:
//
//	title := cell.NewCombined("",
//	    func() string { return win.Title() },
//	    func(s string) { win.SetTitle(s) },
//	)
//
// Set hands the value to the invoker and stops there. When the resource
// reports a change on its own, Change(true, v) bypasses the invoker and
// runs the normal apply-and-notify path.
package cell
