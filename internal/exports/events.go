package exports

import (
	"sync"
	"time"
)

// Kind classifies export lifecycle events.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindFinished  Kind = "finished"
	KindFailed    Kind = "failed"
	KindStatus    Kind = "status"

	// KindAll subscribes a handler to every event kind.
	KindAll Kind = "*"
)

// Event is a sequenced lifecycle payload consumed by UI subscribers.
// For a given key, a submitted event always precedes exactly one of
// finished/failed.
type Event struct {
	Seq        int64     `json:"seq"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       Kind      `json:"kind"`
	Key        string    `json:"key,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
	DisplayMS  int       `json:"displayMs,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Subscription identifies one registered handler and can cancel it.
type Subscription struct {
	hub  *Hub
	kind Kind
	id   int64
}

// Cancel removes the subscription's handler. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.hub == nil {
		return
	}
	s.hub.unsubscribe(s.kind, s.id)
}

// Hub fans events out to typed subscribers and keeps a bounded sequenced
// history for incremental polling.
type Hub struct {
	mu        sync.RWMutex
	nextSeq   int64
	nextSub   int64
	maxEvents int
	events    []Event
	handlers  map[Kind]map[int64]Handler
}

// NewHub creates a hub with a bounded in-memory event buffer.
func NewHub(maxEvents int) *Hub {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Hub{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		handlers:  make(map[Kind]map[int64]Handler),
	}
}

// Subscribe registers handler for one event kind (or KindAll) and returns
// a cancellable subscription handle.
func (h *Hub) Subscribe(kind Kind, handler Handler) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSub++
	set, ok := h.handlers[kind]
	if !ok {
		set = make(map[int64]Handler)
		h.handlers[kind] = set
	}
	set[h.nextSub] = handler

	return &Subscription{hub: h, kind: kind, id: h.nextSub}
}

// Publish appends one event, assigns sequence and timestamp, and invokes
// matching handlers outside the hub lock.
func (h *Hub) Publish(event Event) Event {
	h.mu.Lock()
	h.nextSeq++
	event.Seq = h.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.events = append(h.events, event)
	if len(h.events) > h.maxEvents {
		trim := len(h.events) - h.maxEvents
		h.events = append([]Event(nil), h.events[trim:]...)
	}

	targets := make([]Handler, 0, len(h.handlers[event.Kind])+len(h.handlers[KindAll]))
	for _, handler := range h.handlers[event.Kind] {
		targets = append(targets, handler)
	}
	for _, handler := range h.handlers[KindAll] {
		targets = append(targets, handler)
	}
	h.mu.Unlock()

	for _, handler := range targets {
		handler(event)
	}
	return event
}

// Since returns events with sequence strictly greater than seq.
func (h *Hub) Since(seq int64) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(h.events))
	for _, event := range h.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

func (h *Hub) unsubscribe(kind Kind, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.handlers[kind]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(h.handlers, kind)
		}
	}
}
