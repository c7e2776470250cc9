// Package effects reacts to applied store actions: it performs the I/O
// the reducers cannot (API calls, persistence) and dispatches the
// result actions back into the store.
package effects

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmelo/ragchat/internal/auth"
	"github.com/dmelo/ragchat/internal/bus"
	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/client"
	"github.com/dmelo/ragchat/internal/state"
	"github.com/dmelo/ragchat/internal/store"
)

// LocalUserID owns every thread created by this client. The backend has
// no per-user accounts beyond the token pair, so a fixed id suffices.
const LocalUserID = "local-user"

// Completer is the slice of the API client the chat effects need.
type Completer interface {
	SendMessage(ctx context.Context, content, threadID string) (*client.ChatResponse, error)
}

// Chat wires chat actions to the backend and the local database:
// load_threads hydrates state from disk, send_message calls the
// completion endpoint, and every state-changing action is persisted
// right after the reducer has applied it.
type Chat struct {
	store  *state.Store
	db     *store.DB
	api    Completer
	bus    *bus.Bus
	logger *zap.Logger

	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// NewChat creates the chat effect handler. Call Start to begin.
func NewChat(st *state.Store, db *store.DB, api Completer, b *bus.Bus, logger *zap.Logger) *Chat {
	return &Chat{store: st, db: db, api: api, bus: b, logger: logger}
}

// Start subscribes to the chat namespace and runs the handler loop.
func (c *Chat) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	ch, unsub := c.bus.Subscribe(bus.NamespaceChat, 256)
	c.unsub = unsub

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case evt := <-ch:
				c.handle(ctx, evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels in-flight work and waits for the loop to exit.
func (c *Chat) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.unsub != nil {
		c.unsub()
	}
	c.wg.Wait()
}

func (c *Chat) handle(ctx context.Context, evt bus.Event) {
	switch a := evt.Payload.(type) {
	case chat.LoadThreads:
		c.loadAll()

	case chat.CreateThread:
		c.store.Dispatch(chat.ThreadCreated{Thread: chat.NewThread(LocalUserID)})

	case chat.ThreadCreated:
		c.persistThread(a.Thread.ID)
		c.saveCurrentThread()

	case chat.SetCurrentThread, chat.ClearCurrentThread:
		c.saveCurrentThread()

	case chat.SendMessage:
		c.persistThread(a.Message.ThreadID)
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.send(ctx, a.Message)
		}()

	case chat.MessageSent:
		c.persistThread(a.Assistant.ThreadID)

	case chat.SendFailed:
		c.persistThread(a.ThreadID)

	case chat.AppendChunk:
		c.persistThread(a.ThreadID)

	case chat.StreamCompleted:
		c.persistThread(a.Message.ThreadID)

	case chat.DeleteThread:
		if err := c.db.DeleteThread(a.ThreadID); err != nil {
			c.warn("delete thread", err)
		}
		c.saveThreads()
		c.saveCurrentThread()

	case chat.RenameThread:
		c.saveThreads()
	}
}

// loadAll hydrates the store from disk: the thread list, every thread's
// messages, and the current-thread pointer.
func (c *Chat) loadAll() {
	threads, err := c.db.LoadThreads()
	if err != nil {
		c.store.Dispatch(chat.LoadFailed{Err: err.Error()})
		return
	}

	msgs := make(map[string][]chat.Message, len(threads))
	for _, t := range threads {
		m, err := c.db.LoadMessages(t.ID)
		if err != nil {
			c.store.Dispatch(chat.LoadFailed{Err: err.Error()})
			return
		}
		msgs[t.ID] = m
	}

	current, err := c.db.LoadCurrentThread()
	if err != nil {
		c.store.Dispatch(chat.LoadFailed{Err: err.Error()})
		return
	}
	if _, ok := indexOf(threads, current); !ok {
		// Stale pointer (thread deleted out of band): drop it.
		current = ""
	}

	c.store.Dispatch(chat.ThreadsLoaded{Threads: threads})
	c.store.Dispatch(chat.MessagesLoaded{Messages: msgs, CurrentThreadID: current})
}

// send posts the user message to the completion endpoint and resolves
// the optimistic message with the outcome.
func (c *Chat) send(ctx context.Context, m chat.Message) {
	resp, err := c.api.SendMessage(ctx, m.Content, m.ThreadID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			c.bus.Publish(bus.Event{Kind: bus.KindSessionLoggedOut, Timestamp: time.Now()})
		}
		c.store.Dispatch(chat.SendFailed{
			ThreadID:      m.ThreadID,
			UserMessageID: m.ID,
			Err:           err.Error(),
		})
		return
	}

	assistant := chat.Message{
		ID:        uuid.New().String(),
		ThreadID:  m.ThreadID,
		Role:      chat.RoleAssistant,
		Content:   resp.Answer,
		Timestamp: time.Now(),
		Status:    chat.StatusSent,
	}
	if len(resp.Sources) > 0 {
		assistant.Metadata = &chat.Metadata{Sources: resp.Sources}
	}
	c.store.Dispatch(chat.MessageSent{UserMessageID: m.ID, Assistant: assistant})
}

// persistThread writes the thread list and one thread's messages from
// the current snapshot. Persistence failures are logged, never fatal.
func (c *Chat) persistThread(threadID string) {
	cs := c.store.Chat()
	if err := c.db.SaveThreads(cs.Threads); err != nil {
		c.warn("save threads", err)
	}
	if err := c.db.SaveMessages(threadID, cs.ThreadMessages(threadID)); err != nil {
		c.warn("save messages", err)
	}
}

func (c *Chat) saveThreads() {
	if err := c.db.SaveThreads(c.store.Chat().Threads); err != nil {
		c.warn("save threads", err)
	}
}

func (c *Chat) saveCurrentThread() {
	if err := c.db.SaveCurrentThread(c.store.Chat().CurrentThreadID); err != nil {
		c.warn("save current thread", err)
	}
}

func (c *Chat) warn(op string, err error) {
	if c.logger != nil {
		c.logger.Warn("chat effect: "+op, zap.Error(err))
	}
}

func indexOf(threads []chat.Thread, id string) (int, bool) {
	for i, t := range threads {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}
