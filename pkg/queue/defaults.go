package queue

import "sync"

var (
	defaultsMu  sync.Mutex
	mainQueue   *Queue
	eventsQueue *Queue
)

// Main returns the process-wide caller queue, creating it on first use.
// The goroutine that first calls Main owns it until another goroutine
// calls Run on it.
func Main() *Queue {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	if mainQueue == nil {
		mainQueue = NewCaller(WithName("main"))
	}
	return mainQueue
}

// Events returns the process-wide queue used by event hubs that were not
// given one. It is a direct queue unless replaced with SetEvents.
func Events() *Queue {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	if eventsQueue == nil {
		eventsQueue = NewDirect(WithName("events"))
	}
	return eventsQueue
}

// SetMain replaces the process-wide main queue.
func SetMain(q *Queue) {
	defaultsMu.Lock()
	mainQueue = q
	defaultsMu.Unlock()
}

// SetEvents replaces the process-wide events queue.
func SetEvents(q *Queue) {
	defaultsMu.Lock()
	eventsQueue = q
	defaultsMu.Unlock()
}

// ResetDefaults closes the process-wide queues and forgets them so the next
// call to Main or Events creates fresh ones.
func ResetDefaults() {
	defaultsMu.Lock()
	m, e := mainQueue, eventsQueue
	mainQueue, eventsQueue = nil, nil
	defaultsMu.Unlock()

	if m != nil {
		_ = m.Close()
	}
	if e != nil {
		_ = e.Close()
	}
}
