package chat

import (
	"time"

	"github.com/google/uuid"
)

// Action kinds, namespaced for bus subscribers.
const (
	KindLoadThreads      = "chat.load_threads"
	KindThreadsLoaded    = "chat.threads_loaded"
	KindMessagesLoaded   = "chat.messages_loaded"
	KindLoadFailed       = "chat.load_failed"
	KindCreateThread     = "chat.create_thread"
	KindThreadCreated    = "chat.thread_created"
	KindSetCurrentThread = "chat.set_current_thread"
	KindSendMessage      = "chat.send_message"
	KindMessageSent      = "chat.message_sent"
	KindSendFailed       = "chat.send_failed"
	KindStartStreaming   = "chat.start_streaming"
	KindAppendChunk      = "chat.append_chunk"
	KindStreamCompleted  = "chat.stream_completed"
	KindStreamFailed     = "chat.stream_failed"
	KindSetToolStatus    = "chat.set_tool_status"
	KindClearToolStatus  = "chat.clear_tool_status"
	KindDeleteThread     = "chat.delete_thread"
	KindRenameThread     = "chat.rename_thread"
	KindClearCurrent     = "chat.clear_current_thread"
)

// LoadThreads requests loading of all persisted threads and messages.
type LoadThreads struct{}

func (LoadThreads) Kind() string { return KindLoadThreads }

// ThreadsLoaded carries the persisted thread list.
type ThreadsLoaded struct {
	Threads []Thread
}

func (ThreadsLoaded) Kind() string { return KindThreadsLoaded }

// MessagesLoaded carries all persisted message maps plus the restored
// current-thread pointer, applied in one transition.
type MessagesLoaded struct {
	Messages        map[string][]Message
	CurrentThreadID string
}

func (MessagesLoaded) Kind() string { return KindMessagesLoaded }

// LoadFailed reports a failure to load persisted state.
type LoadFailed struct {
	Err string
}

func (LoadFailed) Kind() string { return KindLoadFailed }

// CreateThread requests a fresh thread.
type CreateThread struct{}

func (CreateThread) Kind() string { return KindCreateThread }

// ThreadCreated carries the freshly built thread.
type ThreadCreated struct {
	Thread Thread
}

func (ThreadCreated) Kind() string { return KindThreadCreated }

// NewThread builds a thread with the default title. The caller (effect
// layer) is responsible for dispatching ThreadCreated and persisting.
func NewThread(userID string) Thread {
	now := time.Now()
	return Thread{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     DefaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetCurrentThread switches the current-thread pointer. The reducer
// does not validate existence; callers pass known thread ids.
type SetCurrentThread struct {
	ThreadID string
}

func (SetCurrentThread) Kind() string { return KindSetCurrentThread }

// SendMessage optimistically appends a user message and triggers the
// completion request in the effect layer.
type SendMessage struct {
	Message Message
}

func (SendMessage) Kind() string { return KindSendMessage }

// NewSendMessage builds the optimistic user message for content. ID and
// timestamp are fixed here so the reducer stays deterministic.
func NewSendMessage(content, threadID, attachedDocument string) SendMessage {
	return SendMessage{Message: Message{
		ID:               uuid.New().String(),
		ThreadID:         threadID,
		Role:             RoleUser,
		Content:          content,
		Timestamp:        time.Now(),
		Status:           StatusPending,
		AttachedDocument: attachedDocument,
	}}
}

// MessageSent resolves the optimistic user message and appends the
// assistant answer.
type MessageSent struct {
	UserMessageID string
	Assistant     Message
}

func (MessageSent) Kind() string { return KindMessageSent }

// SendFailed resolves the optimistic user message as failed. The user
// message stays in place; there is no automatic retry.
type SendFailed struct {
	ThreadID      string
	UserMessageID string
	Err           string
}

func (SendFailed) Kind() string { return KindSendFailed }

// StartStreaming marks the start of an assistant response stream.
type StartStreaming struct{}

func (StartStreaming) Kind() string { return KindStartStreaming }

// AppendChunk carries one AI content chunk. MessageID is used only when
// a new streaming message must be created (no streaming tail yet).
type AppendChunk struct {
	ThreadID  string
	MessageID string
	Content   string
	Timestamp time.Time
}

func (AppendChunk) Kind() string { return KindAppendChunk }

// NewAppendChunk builds an AppendChunk for content arriving on threadID.
func NewAppendChunk(threadID, content string) AppendChunk {
	return AppendChunk{
		ThreadID:  threadID,
		MessageID: uuid.New().String(),
		Content:   content,
		Timestamp: time.Now(),
	}
}

// StreamCompleted replaces the streaming tail with the final message.
type StreamCompleted struct {
	Message Message
}

func (StreamCompleted) Kind() string { return KindStreamCompleted }

// StreamFailed surfaces a stream-level error. Partial streamed content
// is left in place so the user keeps what already arrived.
type StreamFailed struct {
	Err string
}

func (StreamFailed) Kind() string { return KindStreamFailed }

// SetToolStatus overwrites the single tool status slot.
type SetToolStatus struct {
	ToolStatus ToolStatus
}

func (SetToolStatus) Kind() string { return KindSetToolStatus }

// ClearToolStatus empties the tool status slot.
type ClearToolStatus struct{}

func (ClearToolStatus) Kind() string { return KindClearToolStatus }

// DeleteThread removes a thread and its messages.
type DeleteThread struct {
	ThreadID string
}

func (DeleteThread) Kind() string { return KindDeleteThread }

// RenameThread sets an explicit thread title.
type RenameThread struct {
	ThreadID  string
	Title     string
	UpdatedAt time.Time
}

func (RenameThread) Kind() string { return KindRenameThread }

// NewRenameThread builds a RenameThread stamped with the current time.
func NewRenameThread(threadID, title string) RenameThread {
	return RenameThread{ThreadID: threadID, Title: title, UpdatedAt: time.Now()}
}

// ClearCurrentThread drops the current-thread pointer.
type ClearCurrentThread struct{}

func (ClearCurrentThread) Kind() string { return KindClearCurrent }
