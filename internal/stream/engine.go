// Package stream consumes the backend's SSE response stream and
// assembles assistant messages incrementally through store actions.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/state"
)

// Opener opens the streaming endpoint for a message.
type Opener interface {
	OpenStream(ctx context.Context, message, threadID string) (io.ReadCloser, error)
}

// ErrSuperseded is returned when a stream is cancelled because a newer
// stream was started for the same thread.
var ErrSuperseded = errors.New("stream superseded by a newer stream")

type handle struct {
	cancel context.CancelFunc
}

// Engine drives one SSE connection per call to Stream, translating wire
// events into store actions in arrival order. A per-thread registry
// guarantees at most one active stream per thread: starting a new one
// cancels the previous.
type Engine struct {
	store  *state.Store
	opener Opener
	logger *zap.Logger

	mu     sync.Mutex
	active map[string]*handle
}

// NewEngine creates a streaming engine.
func NewEngine(store *state.Store, opener Opener, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		opener: opener,
		logger: logger,
		active: make(map[string]*handle),
	}
}

// Stream opens a connection for message on threadID and processes events
// until completion, error, or cancellation. It blocks; callers run it in
// a goroutine. The transport is released on every exit path.
func (e *Engine) Stream(ctx context.Context, message, threadID string) error {
	ctx, cancel := context.WithCancel(ctx)
	h := &handle{cancel: cancel}
	e.register(threadID, h)
	defer e.unregister(threadID, h)
	defer cancel()

	body, err := e.opener.OpenStream(ctx, message, threadID)
	if err != nil {
		e.store.Dispatch(chat.StreamFailed{Err: err.Error()})
		return fmt.Errorf("open stream: %w", err)
	}
	defer func() { _ = body.Close() }()

	e.store.Dispatch(chat.StartStreaming{})

	reader := NewSSEReader(body)
	for {
		data, err := reader.ReadEvent()
		if err != nil {
			// A superseded or shut-down stream stays silent: the
			// replacement owns the UI state now.
			if ctx.Err() != nil {
				return ErrSuperseded
			}
			if err == io.EOF {
				err = errors.New("stream closed before completion")
			}
			e.store.Dispatch(chat.StreamFailed{Err: err.Error()})
			return err
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			// Malformed payloads are per-event: log and keep reading.
			if e.logger != nil {
				e.logger.Warn("malformed stream event", zap.Error(err), zap.ByteString("data", data))
			}
			continue
		}

		done, err := e.handleEvent(evt, threadID)
		if done || err != nil {
			return err
		}
	}
}

// CancelAll cancels every active stream. Used at shutdown.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for threadID, h := range e.active {
		h.cancel()
		delete(e.active, threadID)
	}
}

func (e *Engine) handleEvent(evt Event, threadID string) (done bool, err error) {
	switch evt.Type {
	case "chunk":
		switch evt.MessageType {
		case MessageTypeTool:
			name := evt.Name
			if name == "" {
				name = "tool"
			}
			e.store.Dispatch(chat.SetToolStatus{ToolStatus: chat.ToolStatus{
				Name:    name,
				Status:  chat.ToolRunning,
				Message: fmt.Sprintf("Using %s...", name),
			}})
		case MessageTypeAI:
			if evt.Content != "" {
				e.store.Dispatch(chat.NewAppendChunk(threadID, evt.Content))
			}
		default:
			// Unexpected message types pass through without merging.
			if e.logger != nil {
				e.logger.Debug("ignoring chunk", zap.String("messageType", evt.MessageType))
			}
		}
		return false, nil

	case "complete":
		final := chat.Message{
			ID:        uuid.New().String(),
			ThreadID:  threadID,
			Role:      chat.RoleAssistant,
			Content:   evt.Content,
			Timestamp: time.Now(),
			Metadata:  evt.Metadata,
		}
		e.store.Dispatch(chat.StreamCompleted{Message: final})
		e.store.Dispatch(chat.ClearToolStatus{})
		return true, nil

	case "error":
		msg := evt.Message
		if msg == "" {
			msg = "streaming error"
		}
		e.store.Dispatch(chat.StreamFailed{Err: msg})
		return true, errors.New(msg)

	default:
		if e.logger != nil {
			e.logger.Debug("ignoring stream event", zap.String("type", evt.Type))
		}
		return false, nil
	}
}

func (e *Engine) register(threadID string, h *handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.active[threadID]; ok {
		prev.cancel()
	}
	e.active[threadID] = h
}

func (e *Engine) unregister(threadID string, h *handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[threadID] == h {
		delete(e.active, threadID)
	}
}
