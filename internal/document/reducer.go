package document

// Reduce applies an action to the document state and returns the next
// state. Pure; unknown actions are ignored.
func Reduce(s State, action any) State {
	switch a := action.(type) {
	case Upload:
		s.IsUploading = true
		s.Err = ""
		return s

	case UploadProgress:
		sum := a.Summary
		s.CurrentUpload = &sum
		return s

	case UploadDone:
		s = s.withDocument(a.ThreadID, a.Filename, a.Summary)
		sum := a.Summary
		s.CurrentUpload = &sum
		s.IsUploading = false
		s.Err = ""
		return s

	case UploadFailed:
		s.CurrentUpload = nil
		s.IsUploading = false
		s.Err = a.Err
		return s

	case DocumentsLoaded:
		return s.withThreadDocuments(a.ThreadID, a.Documents)

	case ClearCurrentUpload:
		s.CurrentUpload = nil
		return s
	}

	return s
}
