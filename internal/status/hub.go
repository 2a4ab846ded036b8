package status

import (
	"sync"

	"github.com/owlcms/recorder/internal/logging"
)

// Hub logs every event and fans it out to subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers []func(Event)
}

// NewHub returns a hub with no subscribers
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers fn; it is called synchronously for every event and must not block.
func (h *Hub) Subscribe(fn func(Event)) {
	h.mu.Lock()
	h.subscribers = append(h.subscribers, fn)
	h.mu.Unlock()
}

// Channel returns a buffered channel fed with events. Events are dropped when the reader falls behind.
func (h *Hub) Channel(size int) <-chan Event {
	ch := make(chan Event, size)
	h.Subscribe(func(ev Event) {
		select {
		case ch <- ev:
		default:
			logging.Trace("status channel full, dropping %s", ev.Kind)
		}
	})
	return ch
}

// OnEvent writes ev to the log and forwards it to subscribers.
func (h *Hub) OnEvent(ev Event) {
	switch ev.Severity {
	case Debug:
		logging.Trace("%s", ev)
	case Info:
		logging.InfoLogger.Printf("%s", ev)
	case Warning:
		logging.WarningLogger.Printf("%s", ev)
	default:
		logging.ErrorLogger.Printf("%s", ev)
	}

	h.mu.RLock()
	subscribers := h.subscribers
	h.mu.RUnlock()
	for _, fn := range subscribers {
		fn(ev)
	}
}
