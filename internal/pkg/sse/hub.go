package sse

import (
	"sync"
)

// Event is one server-sent event for the terminals of a device.
type Event struct {
	DeviceID string
	Event    string
	Data     interface{}
}

// Hub fans events out to the open event streams of each device.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	buffer      int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 10
	}
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a stream for a device and returns its channel and cleanup function
func (h *Hub) Subscribe(deviceID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)

	if h.subscribers[deviceID] == nil {
		h.subscribers[deviceID] = make(map[chan Event]struct{})
	}
	h.subscribers[deviceID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[deviceID], ch)
			close(ch)
			if len(h.subscribers[deviceID]) == 0 {
				delete(h.subscribers, deviceID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to every stream of a device
func (h *Hub) Publish(deviceID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[deviceID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Slow readers drop events rather than block the workflow.
			}
		}
	}
}

// SubscriberCount returns the number of open streams for a device
func (h *Hub) SubscriberCount(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[deviceID])
}

// TotalSubscribers returns the number of open streams across all devices
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
