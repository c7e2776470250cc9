package state

import (
	"context"
	"sync"
	"time"

	"github.com/dmelo/ragchat/internal/bus"
	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/document"
	"go.uber.org/zap"
)

// Action is a dispatched intent. Kind is namespaced (chat.*, document.*)
// and doubles as the bus event kind once the action has been applied.
type Action interface {
	Kind() string
}

// Store serializes all state transitions. Actions are applied strictly
// in dispatch order by a single loop goroutine; each applied action is
// then published on the bus so the effect layer can react. Reducers are
// pure, so between two actions every snapshot is a fully consistent
// state and no torn reads are possible.
type Store struct {
	bus    *bus.Bus
	logger *zap.Logger

	actions chan Action
	done    chan struct{}
	cancel  context.CancelFunc

	mu   sync.RWMutex
	chat chat.State
	docs document.State
}

// New creates a store with initial state. Call Start before dispatching.
func New(b *bus.Bus, logger *zap.Logger) *Store {
	return &Store{
		bus:     b,
		logger:  logger,
		actions: make(chan Action, 256),
		done:    make(chan struct{}),
		chat:    chat.NewState(),
		docs:    document.NewState(),
	}
}

// Start runs the dispatch loop until ctx is cancelled or Stop is called.
func (s *Store) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		for {
			select {
			case a := <-s.actions:
				s.apply(a)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the dispatch loop. Pending actions are discarded.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Dispatch enqueues an action. Blocks if the queue is full, preserving
// dispatch order; becomes a no-op once the store has stopped.
func (s *Store) Dispatch(a Action) {
	select {
	case s.actions <- a:
	case <-s.done:
	}
}

// Chat returns a snapshot of the chat state.
func (s *Store) Chat() chat.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chat
}

// Documents returns a snapshot of the document state.
func (s *Store) Documents() document.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs
}

func (s *Store) apply(a Action) {
	s.mu.Lock()
	s.chat = chat.Reduce(s.chat, a)
	s.docs = document.Reduce(s.docs, a)
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Debug("action applied", zap.String("kind", a.Kind()))
	}

	s.bus.Publish(bus.Event{
		Kind:      a.Kind(),
		Timestamp: time.Now(),
		Payload:   a,
	})
}
