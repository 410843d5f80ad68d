package scatter

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Handler receives one parsed gateway event. Handlers run on the session's
// dispatch goroutine, one event at a time, in arrival order; a slow handler
// delays later events but never heartbeating. A panicking handler is
// recovered and logged and never stops the session or other handlers.
type Handler func(Event)

type listenerEntry struct {
	id uuid.UUID
	fn Handler
}

// Registration identifies one registered listener so it can be removed.
type Registration struct {
	id    uuid.UUID
	event EventType
	d     *dispatcher
}

// Remove unregisters the listener. Safe to call more than once.
func (r *Registration) Remove() {
	r.d.removeListener(r.event, r.id)
}

// dispatcher fans inbound envelopes out to registered handlers. Each
// canonical event kind has at most one primary handler plus any number of
// listeners, invoked in registration order after the primary.
type dispatcher struct {
	logger  *slog.Logger
	onReady func(userID string)

	mu        sync.RWMutex
	handlers  map[EventType]Handler
	listeners map[EventType][]listenerEntry
}

func newDispatcher(logger *slog.Logger, onReady func(string)) *dispatcher {
	return &dispatcher{
		logger:    logger,
		onReady:   onReady,
		handlers:  make(map[EventType]Handler),
		listeners: make(map[EventType][]listenerEntry),
	}
}

// setHandler installs the primary handler for an event kind, replacing any
// previous one.
func (d *dispatcher) setHandler(event EventType, fn Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = fn
}

// addListener appends a listener for an event kind and returns its handle.
func (d *dispatcher) addListener(event EventType, fn Handler) *Registration {
	reg := &Registration{id: uuid.New(), event: event, d: d}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], listenerEntry{id: reg.id, fn: fn})
	return reg
}

func (d *dispatcher) removeListener(event EventType, id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries := d.listeners[event]
	for i, e := range entries {
		if e.id == id {
			d.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// dispatch runs one full handler round for an inbound envelope. It returns
// only when the primary handler and every listener have run (or had their
// failures isolated), preserving the one-envelope-at-a-time ordering
// guarantee.
func (d *dispatcher) dispatch(env *Envelope) {
	kind, ok := eventKinds[env.Type]
	if !ok {
		d.logger.Debug("dropping unknown gateway event", "kind", env.Type)
		return
	}

	evt, err := parseEvent(kind, env.Data)
	if err != nil {
		d.logger.Debug("dropping malformed gateway event", "kind", env.Type, "error", err)
		return
	}

	// The ready event updates the session's recorded user ID before any
	// handler observes it.
	if ready, ok := evt.(*ReadyEvent); ok && d.onReady != nil {
		d.onReady(ready.UserID)
	}

	d.mu.RLock()
	primary := d.handlers[kind]
	entries := append([]listenerEntry(nil), d.listeners[kind]...)
	d.mu.RUnlock()

	if primary != nil {
		d.invoke(kind, primary, evt)
	}
	for _, entry := range entries {
		d.invoke(kind, entry.fn, evt)
	}
}

// invoke runs one handler with panic isolation.
func (d *dispatcher) invoke(kind EventType, fn Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", "kind", kind, "panic", r)
		}
	}()
	fn(evt)
}
