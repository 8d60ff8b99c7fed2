package services

import (
	"sync"
	"time"

	"github.com/cartwheelhq/cartwheel/internal/models"
)

// ListEventsHub fans list mutation events out to per-list subscribers.
// It replaces interval polling: every viewer subscribed to a list
// eventually observes the same sequence of revisions.
type ListEventsHub struct {
	mu   sync.Mutex
	subs map[int]map[chan models.ListEvent]struct{}
}

// NewListEventsHub creates a new hub
func NewListEventsHub() *ListEventsHub {
	return &ListEventsHub{
		subs: make(map[int]map[chan models.ListEvent]struct{}),
	}
}

// Subscribe registers a subscriber for one list. The returned cancel
// function must be called to release the channel.
func (h *ListEventsHub) Subscribe(listID int) (<-chan models.ListEvent, func()) {
	ch := make(chan models.ListEvent, 8)

	h.mu.Lock()
	if h.subs[listID] == nil {
		h.subs[listID] = make(map[chan models.ListEvent]struct{})
	}
	h.subs[listID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[listID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, listID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish notifies all subscribers of a list mutation. Slow subscribers
// with a full buffer miss the event; they converge on their next fetch.
func (h *ListEventsHub) Publish(listID int, eventType string, itemID *int) {
	event := models.ListEvent{
		ListID: listID,
		Type:   eventType,
		ItemID: itemID,
		At:     time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[listID] {
		select {
		case ch <- event:
		default:
		}
	}
}
