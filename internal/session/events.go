package session

import (
	"sync"

	"github.com/floorplan-editor/backend/internal/models"
)

// EventType names what happened in a session.
type EventType string

const (
	EventOperation EventType = "operation"
	EventUndo      EventType = "undo"
	EventRedo      EventType = "redo"
	EventSelection EventType = "selection"
	EventView      EventType = "view"
	EventLayout    EventType = "layout"
	EventSaved     EventType = "saved"
	EventDialog    EventType = "dialog"
)

// Dialog codes carried by EventDialog.
const (
	DialogSelectionLimit = "SELECTION_LIMIT"
)

// Dialog is a request for the user to be told something.
type Dialog struct {
	Code      string `json:"code"`
	Requested int    `json:"requested,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Event is broadcast to every listener of a session.
type Event struct {
	Type        EventType              `json:"type"`
	SessionID   string                 `json:"sessionId"`
	Operation   *models.ShapeOperation `json:"operation,omitempty"`
	SelectedIDs []string               `json:"selectedIds,omitempty"`
	LayoutID    string                 `json:"layoutId,omitempty"`
	Dialog      *Dialog                `json:"dialog,omitempty"`
}

// Listener receives session events. It runs outside the session lock.
type Listener func(Event)

type broadcaster struct {
	mu        sync.Mutex
	listeners map[int]Listener
	nextID    int
	pending   []Event
}

func (b *broadcaster) subscribe(l Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]Listener)
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = l
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *broadcaster) queue(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, ev)
}

// flush delivers queued events in order.
func (b *broadcaster) flush() {
	b.mu.Lock()
	events := b.pending
	b.pending = nil
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
}
