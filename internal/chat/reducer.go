package chat

// Reduce applies an action to the chat state and returns the next state.
// It is a pure function: no I/O, no mutation of the prior state. Actions
// it does not recognize leave the state unchanged.
func Reduce(s State, action any) State {
	switch a := action.(type) {
	case LoadThreads:
		s.IsLoading = true
		return s

	case ThreadsLoaded:
		s.Threads = a.Threads
		s.IsLoading = false
		return s

	case MessagesLoaded:
		s.Messages = a.Messages
		s.CurrentThreadID = a.CurrentThreadID
		s.IsLoading = false
		return s

	case LoadFailed:
		s.Err = a.Err
		s.IsLoading = false
		return s

	case ThreadCreated:
		threads := make([]Thread, 0, len(s.Threads)+1)
		threads = append(threads, a.Thread)
		threads = append(threads, s.Threads...)
		s.Threads = threads
		s = s.withMessages(a.Thread.ID, []Message{})
		s.CurrentThreadID = a.Thread.ID
		return s

	case SetCurrentThread:
		s.CurrentThreadID = a.ThreadID
		return s

	case SendMessage:
		return reduceSendMessage(s, a)

	case MessageSent:
		threadID := a.Assistant.ThreadID
		msgs := setStatus(s.ThreadMessages(threadID), a.UserMessageID, StatusSent)
		msgs = append(msgs, a.Assistant)
		s = s.withMessages(threadID, msgs)
		s = s.setMessageCount(threadID, len(msgs))
		s.IsWaitingForResponse = false
		return s

	case SendFailed:
		msgs := setStatus(s.ThreadMessages(a.ThreadID), a.UserMessageID, StatusFailed)
		s = s.withMessages(a.ThreadID, msgs)
		s.IsWaitingForResponse = false
		s.Err = a.Err
		return s

	case StartStreaming:
		s.IsStreaming = true
		return s

	case AppendChunk:
		return reduceAppendChunk(s, a)

	case StreamCompleted:
		threadID := a.Message.ThreadID
		old := s.ThreadMessages(threadID)
		msgs := make([]Message, 0, len(old)+1)
		for _, m := range old {
			if !m.IsStreaming() {
				msgs = append(msgs, m)
			}
		}
		msgs = append(msgs, a.Message)
		s = s.withMessages(threadID, msgs)
		s = s.setMessageCount(threadID, len(msgs))
		s.IsStreaming = false
		return s

	case StreamFailed:
		s.Err = a.Err
		s.IsStreaming = false
		return s

	case SetToolStatus:
		ts := a.ToolStatus
		s.ToolStatus = &ts
		return s

	case ClearToolStatus:
		s.ToolStatus = nil
		return s

	case DeleteThread:
		threads := make([]Thread, 0, len(s.Threads))
		for _, t := range s.Threads {
			if t.ID != a.ThreadID {
				threads = append(threads, t)
			}
		}
		s.Threads = threads
		s = s.withoutMessages(a.ThreadID)
		if s.CurrentThreadID == a.ThreadID {
			s.CurrentThreadID = ""
		}
		return s

	case RenameThread:
		threads := make([]Thread, len(s.Threads))
		copy(threads, s.Threads)
		for i := range threads {
			if threads[i].ID == a.ThreadID {
				threads[i].Title = a.Title
				threads[i].UpdatedAt = a.UpdatedAt
			}
		}
		s.Threads = threads
		return s

	case ClearCurrentThread:
		s.CurrentThreadID = ""
		return s
	}

	return s
}

// reduceSendMessage appends the optimistic user message and, when this
// is the thread's first message and the title is still the default,
// derives the title from the content (first 100 runes, once).
func reduceSendMessage(s State, a SendMessage) State {
	threadID := a.Message.ThreadID
	old := s.ThreadMessages(threadID)

	threads := make([]Thread, len(s.Threads))
	copy(threads, s.Threads)
	for i := range threads {
		if threads[i].ID != threadID {
			continue
		}
		if threads[i].Title == DefaultTitle && len(old) == 0 {
			threads[i].Title = Truncate(a.Message.Content, TitleMaxLen)
			threads[i].UpdatedAt = a.Message.Timestamp
		}
		threads[i].MessageCount = len(old) + 1
	}
	s.Threads = threads

	msgs := make([]Message, 0, len(old)+1)
	msgs = append(msgs, old...)
	msgs = append(msgs, a.Message)
	s = s.withMessages(threadID, msgs)
	s.IsWaitingForResponse = true
	return s
}

// reduceAppendChunk merges an AI chunk into the streaming tail message,
// or starts a new streaming message when there is none. The streaming
// message is replaced, never mutated in place, so earlier snapshots stay
// valid. At most one streaming message exists per thread and it is
// always the last element.
func reduceAppendChunk(s State, a AppendChunk) State {
	old := s.ThreadMessages(a.ThreadID)

	if n := len(old); n > 0 && old[n-1].Role == RoleAssistant && old[n-1].IsStreaming() {
		msgs := make([]Message, n)
		copy(msgs, old)
		tail := msgs[n-1]
		tail.Content += a.Content
		msgs[n-1] = tail
		return s.withMessages(a.ThreadID, msgs)
	}

	msgs := make([]Message, 0, len(old)+1)
	msgs = append(msgs, old...)
	msgs = append(msgs, Message{
		ID:        a.MessageID,
		ThreadID:  a.ThreadID,
		Role:      RoleAssistant,
		Content:   a.Content,
		Timestamp: a.Timestamp,
		Metadata:  &Metadata{IsStreaming: true},
	})
	s = s.withMessages(a.ThreadID, msgs)
	return s.setMessageCount(a.ThreadID, len(msgs))
}

// setStatus returns a copy of msgs with the matching message's Status
// replaced. Unknown ids leave the slice unchanged (still copied).
func setStatus(msgs []Message, messageID, status string) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if out[i].ID == messageID {
			out[i].Status = status
		}
	}
	return out
}
