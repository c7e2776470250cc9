package state

import (
	"context"
	"testing"
	"time"

	"github.com/dmelo/ragchat/internal/bus"
	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/document"
)

func testStore(t *testing.T) (*Store, *bus.Bus) {
	t.Helper()
	b := bus.New()
	s := New(b, nil)
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, b
}

// dispatchWait dispatches and blocks until the action has been applied
// and published.
func dispatchWait(t *testing.T, s *Store, b *bus.Bus, a Action) {
	t.Helper()
	ch, unsub := b.Subscribe(a.Kind(), 1)
	defer unsub()
	s.Dispatch(a)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %s to be applied", a.Kind())
	}
}

func TestDispatchAppliesBothReducers(t *testing.T) {
	s, b := testStore(t)

	th := chat.NewThread("local-user")
	dispatchWait(t, s, b, chat.ThreadCreated{Thread: th})
	dispatchWait(t, s, b, document.NewUploadDone(th.ID, "a.pdf", 1, 3))

	if got := s.Chat().CurrentThreadID; got != th.ID {
		t.Errorf("current thread = %q, want %q", got, th.ID)
	}
	if got := s.Documents().ThreadDocuments(th.ID)["a.pdf"]; got.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", got.Chunks)
	}
}

func TestDispatchOrderIsPreserved(t *testing.T) {
	s, b := testStore(t)

	th := chat.NewThread("local-user")
	s.Dispatch(chat.ThreadCreated{Thread: th})
	s.Dispatch(chat.StartStreaming{})
	for _, c := range []string{"a", "b", "c", "d"} {
		s.Dispatch(chat.NewAppendChunk(th.ID, c))
	}
	final := chat.Message{ID: "f", ThreadID: th.ID, Role: chat.RoleAssistant, Content: "abcd"}
	dispatchWait(t, s, b, chat.StreamCompleted{Message: final})

	msgs := s.Chat().ThreadMessages(th.ID)
	if len(msgs) != 1 || msgs[0].Content != "abcd" {
		t.Fatalf("messages = %+v, want single abcd", msgs)
	}
}

func TestAppliedActionIsPublished(t *testing.T) {
	s, b := testStore(t)
	ch, unsub := b.Subscribe(bus.NamespaceChat, 10)
	defer unsub()

	s.Dispatch(chat.LoadThreads{})

	select {
	case evt := <-ch:
		if evt.Kind != chat.KindLoadThreads {
			t.Errorf("kind = %q", evt.Kind)
		}
		if _, ok := evt.Payload.(chat.LoadThreads); !ok {
			t.Errorf("payload type = %T", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("action was not published on the bus")
	}
}

func TestDispatchAfterStopIsNoOp(t *testing.T) {
	b := bus.New()
	s := New(b, nil)
	s.Start(context.Background())
	s.Stop()
	<-s.done

	// Must not block or panic.
	s.Dispatch(chat.LoadThreads{})
}

func TestSnapshotIsolation(t *testing.T) {
	s, b := testStore(t)
	th := chat.NewThread("local-user")
	dispatchWait(t, s, b, chat.ThreadCreated{Thread: th})

	snap := s.Chat()
	dispatchWait(t, s, b, chat.NewSendMessage("hi", th.ID, ""))

	if len(snap.ThreadMessages(th.ID)) != 0 {
		t.Error("earlier snapshot changed after later dispatch")
	}
	if len(s.Chat().ThreadMessages(th.ID)) != 1 {
		t.Error("new snapshot missing the message")
	}
}
