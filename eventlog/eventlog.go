// Package eventlog provides an in-memory event recorder plugin. It keeps
// every event the engine emits, in emission order, for inspection by tests
// and by indexers that poll rather than subscribe.
package eventlog

import (
	"context"
	"sync"

	"github.com/xraph/vault/event"
	"github.com/xraph/vault/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin  = (*Log)(nil)
	_ plugin.OnEvent = (*Log)(nil)
)

// Log records emitted events in order.
type Log struct {
	mu     sync.Mutex
	events []*event.Event
}

// New creates an empty event log.
func New() *Log {
	return &Log{}
}

// Name implements plugin.Plugin.
func (l *Log) Name() string { return "event-log" }

// OnEvent implements plugin.OnEvent.
func (l *Log) OnEvent(_ context.Context, e *event.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

// All returns a copy of the recorded events in emission order.
func (l *Log) All() []*event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*event.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Last returns the most recently recorded event, or nil if none.
func (l *Log) Last() *event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}

// Topics returns the topics of the recorded events in emission order.
func (l *Log) Topics() []event.Topic {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]event.Topic, len(l.events))
	for i, e := range l.events {
		out[i] = e.Topic
	}
	return out
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Reset discards all recorded events.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
