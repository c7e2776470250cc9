package document

import "time"

// Action kinds, namespaced for bus subscribers.
const (
	KindUpload             = "document.upload"
	KindUploadProgress     = "document.upload_progress"
	KindUploadDone         = "document.upload_done"
	KindUploadFailed       = "document.upload_failed"
	KindLoadDocuments      = "document.load_documents"
	KindDocumentsLoaded    = "document.documents_loaded"
	KindClearCurrentUpload = "document.clear_current_upload"
)

// Upload requests ingestion of a file into a thread's document set.
// Only one upload may be current at a time; a second Upload while one
// is in flight overwrites the progress slot (last-writer-wins).
type Upload struct {
	Filename string
	Data     []byte
	ThreadID string
}

func (Upload) Kind() string { return KindUpload }

// UploadProgress overwrites the transient current-upload slot.
type UploadProgress struct {
	Summary Summary
}

func (UploadProgress) Kind() string { return KindUploadProgress }

// UploadDone records the completed summary under the thread's document
// map. CurrentUpload keeps the summary so a waiting observer can detect
// completion; ClearCurrentUpload resets it.
type UploadDone struct {
	ThreadID string
	Filename string
	Summary  Summary
}

func (UploadDone) Kind() string { return KindUploadDone }

// NewUploadDone builds the completion action from the ingest response.
func NewUploadDone(threadID, filename string, documents, chunks int) UploadDone {
	return UploadDone{
		ThreadID: threadID,
		Filename: filename,
		Summary: Summary{
			Filename:   filename,
			Chunks:     chunks,
			Documents:  documents,
			UploadedAt: time.Now(),
			Status:     StatusComplete,
		},
	}
}

// UploadFailed clears the transient slot and records the error. The
// thread's persisted document map is left untouched.
type UploadFailed struct {
	Err string
}

func (UploadFailed) Kind() string { return KindUploadFailed }

// LoadDocuments requests the persisted document map for a thread.
type LoadDocuments struct {
	ThreadID string
}

func (LoadDocuments) Kind() string { return KindLoadDocuments }

// DocumentsLoaded replaces a thread's document map with persisted data.
type DocumentsLoaded struct {
	ThreadID  string
	Documents map[string]Summary
}

func (DocumentsLoaded) Kind() string { return KindDocumentsLoaded }

// ClearCurrentUpload resets the transient slot after the caller has
// consumed the completion signal.
type ClearCurrentUpload struct{}

func (ClearCurrentUpload) Kind() string { return KindClearCurrentUpload }
