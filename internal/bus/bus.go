// Package bus is the in-process pub/sub channel between the state
// store and everything that reacts to applied actions. Subscribers
// register a kind prefix; delivery is non-blocking and lossy for slow
// consumers.
package bus

import (
	"strings"
	"sync"
	"time"
)

// Event is a domain event. For dispatched store actions, Kind is the
// action kind (e.g. "chat.send_message") and Payload is the action
// value itself.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Namespaces used across the app. Subscribers filter by prefix.
const (
	NamespaceChat     = "chat."
	NamespaceDocument = "document."
	NamespaceSession  = "session."
)

// KindSessionLoggedOut is published when a token refresh fails and the
// local session must be treated as expired.
const KindSessionLoggedOut = "session.logged_out"

type subscriber struct {
	prefix string
	ch     chan Event
}

func (s *subscriber) wants(kind string) bool {
	return strings.HasPrefix(kind, s.prefix)
}

// Bus fans events out to prefix-matched subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]*subscriber
	next int
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers evt to every subscriber whose prefix matches
// evt.Kind. A subscriber with a full buffer misses the event rather
// than stalling the publisher.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.wants(evt.Kind) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
		}
	}
}

// Subscribe registers interest in kinds starting with prefix. bufSize
// controls the channel buffer. The returned function removes the
// subscription; the channel is never closed.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	sub := &subscriber{prefix: prefix, ch: make(chan Event, bufSize)}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	return sub.ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}
