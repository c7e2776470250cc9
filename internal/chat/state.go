package chat

// State is the chat slice of application state. Values returned by the
// store are snapshots: reducers never mutate a prior state in place,
// they copy the slices and map entries they touch.
type State struct {
	CurrentThreadID      string
	Threads              []Thread
	Messages             map[string][]Message
	IsStreaming          bool
	ToolStatus           *ToolStatus
	IsLoading            bool
	IsWaitingForResponse bool
	Err                  string
}

// NewState returns the initial chat state.
func NewState() State {
	return State{
		Messages: make(map[string][]Message),
	}
}

// ThreadMessages returns the message slice for a thread (nil if unknown).
func (s State) ThreadMessages(threadID string) []Message {
	return s.Messages[threadID]
}

// Thread returns the thread with the given id, if present.
func (s State) Thread(threadID string) (Thread, bool) {
	for _, t := range s.Threads {
		if t.ID == threadID {
			return t, true
		}
	}
	return Thread{}, false
}

// withMessages returns a copy of s whose Messages map has threadID
// rebound to msgs, sharing all other entries.
func (s State) withMessages(threadID string, msgs []Message) State {
	next := make(map[string][]Message, len(s.Messages)+1)
	for k, v := range s.Messages {
		next[k] = v
	}
	next[threadID] = msgs
	s.Messages = next
	return s
}

// withoutMessages returns a copy of s with threadID removed from Messages.
func (s State) withoutMessages(threadID string) State {
	next := make(map[string][]Message, len(s.Messages))
	for k, v := range s.Messages {
		if k != threadID {
			next[k] = v
		}
	}
	s.Messages = next
	return s
}

// setMessageCount rebinds the thread's MessageCount, copying the slice.
func (s State) setMessageCount(threadID string, n int) State {
	threads := make([]Thread, len(s.Threads))
	copy(threads, s.Threads)
	for i := range threads {
		if threads[i].ID == threadID {
			threads[i].MessageCount = n
		}
	}
	s.Threads = threads
	return s
}
