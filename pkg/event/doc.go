// Package event provides typed multicast events that dispatch on a queue.
//
// Handlers are called newest first. A handler returning Handled stops the
// dispatch; Skip passes the value on to the next handler:
//
//	clicked := event.New[Point](event.WithQueue(ui))
//	tok := clicked.Bind(func(p Point) event.Result {
//	    if !bounds.Contains(p) {
//	        return event.Skip
//	    }
//	    press()
//	    return event.Handled
//	})
//	clicked.Invoke(Point{3, 4})      // returns at once, runs on ui
//	res := clicked.InvokeSync(p)     // waits for the dispatch on ui
//	clicked.Unbind(tok)
//
// Handlers that never claim a value can be adapted with Func.
//
// Every invocation copies the handler list under the event's lock and
// dispatches from the copy, so handlers may bind and unbind freely while a
// dispatch is running. A handler unbound after a dispatch took its copy may
// still be called once by that dispatch.
package event
