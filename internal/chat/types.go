package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// DefaultTitle is the title given to a thread before its first message.
const DefaultTitle = "New Conversation"

// TitleMaxLen caps auto-derived thread titles.
const TitleMaxLen = 100

// Delivery status of an optimistically appended user message.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Thread is a conversation: an ordered collection of messages plus metadata.
type Thread struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// Source describes a retrieval source attached to an assistant answer.
type Source struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Metadata carries optional message annotations. IsStreaming marks a
// message under active incremental construction; such a message is
// always the last element of its thread and there is at most one.
type Metadata struct {
	IsStreaming bool     `json:"isStreaming,omitempty"`
	Sources     []Source `json:"sources,omitempty"`
	ToolName    string   `json:"toolName,omitempty"`
}

// Message is a single chat message. Immutable once IsStreaming is cleared.
type Message struct {
	ID               string    `json:"id"`
	ThreadID         string    `json:"threadId"`
	Role             Role      `json:"role"`
	Content          string    `json:"content"`
	Timestamp        time.Time `json:"timestamp"`
	Status           string    `json:"status,omitempty"`
	AttachedDocument string    `json:"attachedDocument,omitempty"`
	Metadata         *Metadata `json:"metadata,omitempty"`
}

// IsStreaming reports whether the message is under incremental construction.
func (m Message) IsStreaming() bool {
	return m.Metadata != nil && m.Metadata.IsStreaming
}

// ToolStatus is the single transient slot describing the tool the
// assistant is currently running. Not per-thread: the app assumes at
// most one active stream at a time.
type ToolStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Tool status values.
const (
	ToolRunning  = "running"
	ToolComplete = "complete"
	ToolError    = "error"
)

// Truncate shortens s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}
