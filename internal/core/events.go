package core

import (
	"sync"
	"time"
)

// Events replace the original browser build's DOM-level CustomEvent
// broadcasts: feature subsystems (missions, rewards, incubator) subscribe to
// typed notifications instead of inferring intent from markup. Dispatch is
// synchronous, in publish order.

// TaskToggled fires after a task flips done state.
type TaskToggled struct {
	ListID string
	TaskID string
	Done   bool
	At     time.Time
}

// ListCompleted fires when a list's current cycle reaches all-done.
type ListCompleted struct {
	ListID      string
	Repeat      Repeat
	CompletedAt time.Time
}

// LevelChanged fires only on an actual level increase, never on re-renders or
// unrelated mutations. Receivers may still deduplicate, but the core will not
// signal the same level twice in a row.
type LevelChanged struct {
	Level    int
	Previous int
}

// ProgressChanged carries the current page's overall completion percentage
// after a completion-affecting mutation.
type ProgressChanged struct {
	PageID  string
	Percent int
}

// DayRolledOver fires from the midnight worker when the local date advances.
type DayRolledOver struct {
	Day time.Time
}

// Handler receives every published event; it switches on the concrete type.
type Handler func(event any)

// Bus is a minimal synchronous pub/sub hub. Subscription order is dispatch
// order.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for all future events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every handler synchronously.
func (b *Bus) Publish(event any) {
	b.mu.Lock()
	hs := make([]Handler, len(b.handlers))
	copy(hs, b.handlers)
	b.mu.Unlock()
	for _, h := range hs {
		h(event)
	}
}
