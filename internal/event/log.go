package event

import "sync"

// DefaultLogCapacity bounds the retained event log when no explicit
// capacity is configured. Unbounded growth is disallowed.
const DefaultLogCapacity = 5000

// Log is a bounded, thread-safe event log. When full, the oldest event is
// evicted first. The log hands out copies only; callers never see shared
// mutable state.
type Log struct {
	mu       sync.RWMutex
	capacity int
	events   []Event
}

// NewLog creates a log bounded at the given capacity.
// A non-positive capacity falls back to DefaultLogCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{capacity: capacity}
}

// Append adds an event, evicting the oldest if the log is at capacity.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) == l.capacity {
		copy(l.events, l.events[1:])
		l.events[len(l.events)-1] = e
		return
	}
	l.events = append(l.events, e)
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// Capacity returns the configured bound.
func (l *Log) Capacity() int {
	return l.capacity
}

// Snapshot returns a copy of all retained events, oldest first.
func (l *Log) Snapshot() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Recent returns a copy of the newest n events, oldest first.
// If n exceeds the retained count, all events are returned.
func (l *Log) Recent(n int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n > len(l.events) {
		n = len(l.events)
	}
	out := make([]Event, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// SinceTick returns a copy of events with Tick >= fromTick, oldest first.
func (l *Log) SinceTick(fromTick int64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event
	for _, e := range l.events {
		if e.Tick >= fromTick {
			out = append(out, e)
		}
	}
	return out
}
