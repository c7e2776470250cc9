package document

import "time"

// Upload status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// Summary describes one ingested document within a thread.
type Summary struct {
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
	Documents  int       `json:"documents"`
	UploadedAt time.Time `json:"uploadedAt"`
	Status     string    `json:"status"`
}

// State is the document slice of application state. Documents is keyed
// by thread id, then filename. CurrentUpload is a single transient slot
// used by a waiting observer (e.g. an upload dialog) to detect
// completion; it is kept on success and must be cleared explicitly.
type State struct {
	Documents     map[string]map[string]Summary
	CurrentUpload *Summary
	IsUploading   bool
	Err           string
}

// NewState returns the initial document state.
func NewState() State {
	return State{
		Documents: make(map[string]map[string]Summary),
	}
}

// ThreadDocuments returns the document map for a thread (nil if none).
func (s State) ThreadDocuments(threadID string) map[string]Summary {
	return s.Documents[threadID]
}

// withDocument returns a copy of s with filename bound under threadID,
// copying only the touched map entries.
func (s State) withDocument(threadID, filename string, summary Summary) State {
	next := make(map[string]map[string]Summary, len(s.Documents)+1)
	for k, v := range s.Documents {
		next[k] = v
	}
	thread := make(map[string]Summary, len(next[threadID])+1)
	for k, v := range next[threadID] {
		thread[k] = v
	}
	thread[filename] = summary
	next[threadID] = thread
	s.Documents = next
	return s
}

// withThreadDocuments returns a copy of s with the whole map for
// threadID replaced.
func (s State) withThreadDocuments(threadID string, docs map[string]Summary) State {
	next := make(map[string]map[string]Summary, len(s.Documents)+1)
	for k, v := range s.Documents {
		next[k] = v
	}
	next[threadID] = docs
	s.Documents = next
	return s
}
