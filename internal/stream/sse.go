package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/dmelo/ragchat/internal/chat"
)

// maxEventSize caps a single SSE event (64KB) to bound memory on a
// misbehaving server.
const maxEventSize = 64 * 1024

// Wire message types, named after the backend's LangChain message classes.
const (
	MessageTypeHuman = "HumanMessage"
	MessageTypeAI    = "AIMessage"
	MessageTypeTool  = "ToolMessage"
)

// Event is one decoded record from the streaming endpoint.
type Event struct {
	Type        string         `json:"type"` // chunk | complete | error
	MessageType string         `json:"messageType,omitempty"`
	Content     string         `json:"content,omitempty"`
	Metadata    *chat.Metadata `json:"metadata,omitempty"`
	Name        string         `json:"name,omitempty"`    // tool name on tool chunks
	Message     string         `json:"message,omitempty"` // detail on error events
}

// SSEReader parses Server-Sent Events from a response body.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next event's data payload. Multi-line data fields
// are joined with newlines per the SSE spec; comment lines and unknown
// fields are skipped. Returns io.EOF when the stream ends cleanly with
// no pending event.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		// Comment line.
		if line[0] == ':' {
			continue
		}

		if data, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			data = bytes.TrimPrefix(data, []byte(" "))
			size += len(data)
			if size > maxEventSize {
				return nil, fmt.Errorf("sse event exceeds %d bytes", maxEventSize)
			}
			dataLines = append(dataLines, data)
		}
		// Other fields (event:, id:, retry:) are not used by the backend.
	}
}
