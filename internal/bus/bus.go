// Package bus is the in-process notification dispatcher connecting the
// pipeline to display and query collaborators.
package bus

import "sync"

// Topics published by the core
const (
	TopicNewInsight      = "homesight_new_insight"
	TopicInsightsUpdated = "homesight_insights_updated"
)

// Handler receives published payloads for a topic
type Handler func(payload any)

// Bus fans published payloads out to subscribers synchronously
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]Handler
}

// New creates an empty bus
func New() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for a topic and returns an unsubscribe
// function
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[topic][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers the payload to every subscriber of the topic.
// Handlers run on the caller's goroutine. Delivery order between
// handlers is not guaranteed.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}
