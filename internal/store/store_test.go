package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/document"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
}

func TestKVRoundTrip(t *testing.T) {
	db := testDB(t)

	if err := db.Put("k", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put("k", []byte("v2")); err != nil {
		t.Fatal(err)
	}

	got, err := db.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v2" {
		t.Errorf("got %q, want v2 (upsert)", got)
	}

	if err := db.Delete("k"); err != nil {
		t.Fatal(err)
	}
	got, err = db.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %q after delete, want nil", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	db := testDB(t)
	got, err := db.Get("absent")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("got %q, want nil", got)
	}
}

func TestThreadsRoundTrip(t *testing.T) {
	db := testDB(t)
	now := time.Now().Truncate(time.Millisecond)
	threads := []chat.Thread{
		{ID: "t1", UserID: "local-user", Title: "Explain quicksort", CreatedAt: now, UpdatedAt: now, MessageCount: 2},
		{ID: "t2", UserID: "local-user", Title: chat.DefaultTitle, CreatedAt: now, UpdatedAt: now},
	}

	if err := db.SaveThreads(threads); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadThreads()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "Explain quicksort" || got[1].MessageCount != 0 {
		t.Errorf("threads = %+v", got)
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	db := testDB(t)
	msgs := []chat.Message{
		{ID: "m1", ThreadID: "t1", Role: chat.RoleUser, Content: "hi", Status: chat.StatusSent},
		{ID: "m2", ThreadID: "t1", Role: chat.RoleAssistant, Content: "hello",
			Metadata: &chat.Metadata{Sources: []chat.Source{{Type: "pdf", Name: "report.pdf"}}}},
	}

	if err := db.SaveMessages("t1", msgs); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadMessages("t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	if got[1].Metadata == nil || len(got[1].Metadata.Sources) != 1 {
		t.Errorf("metadata lost: %+v", got[1])
	}
}

func TestCorruptBlobFallsBackToEmpty(t *testing.T) {
	db := testDB(t)
	if err := db.Put("chat_threads", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := db.Put("chat_messages_t1", []byte(`{"an":"object"}`)); err != nil {
		t.Fatal(err)
	}

	threads, err := db.LoadThreads()
	if err != nil {
		t.Fatal(err)
	}
	if len(threads) != 0 {
		t.Errorf("threads = %+v, want empty", threads)
	}

	msgs, err := db.LoadMessages("t1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("messages = %+v, want empty", msgs)
	}
}

func TestDocumentsRoundTrip(t *testing.T) {
	db := testDB(t)
	docs := map[string]document.Summary{
		"report.pdf": {Filename: "report.pdf", Chunks: 42, Documents: 3, Status: document.StatusComplete},
	}

	if err := db.SaveDocuments("t1", docs); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadDocuments("t1")
	if err != nil {
		t.Fatal(err)
	}
	if got["report.pdf"].Chunks != 42 {
		t.Errorf("documents = %+v", got)
	}

	// Absent thread yields an empty, non-nil map.
	empty, err := db.LoadDocuments("t2")
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty = %+v", empty)
	}
}

func TestCurrentThreadPointer(t *testing.T) {
	db := testDB(t)

	got, err := db.LoadCurrentThread()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("pointer = %q, want empty", got)
	}

	if err := db.SaveCurrentThread("t1"); err != nil {
		t.Fatal(err)
	}
	got, err = db.LoadCurrentThread()
	if err != nil {
		t.Fatal(err)
	}
	if got != "t1" {
		t.Errorf("pointer = %q, want t1", got)
	}
}

func TestDeleteThreadRemovesPerThreadKeys(t *testing.T) {
	db := testDB(t)
	if err := db.SaveMessages("t1", []chat.Message{{ID: "m1"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveDocuments("t1", map[string]document.Summary{"a.pdf": {}}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteThread("t1"); err != nil {
		t.Fatal(err)
	}

	msgs, _ := db.LoadMessages("t1")
	if len(msgs) != 0 {
		t.Error("messages should be gone")
	}
	docs, _ := db.LoadDocuments("t1")
	if len(docs) != 0 {
		t.Error("documents should be gone")
	}
}

func TestTokens(t *testing.T) {
	db := testDB(t)

	if err := db.SaveTokens("acc", "ref"); err != nil {
		t.Fatal(err)
	}
	a, r, err := db.LoadTokens()
	if err != nil {
		t.Fatal(err)
	}
	if a != "acc" || r != "ref" {
		t.Errorf("tokens = %q/%q", a, r)
	}

	if err := db.ClearTokens(); err != nil {
		t.Fatal(err)
	}
	a, r, err = db.LoadTokens()
	if err != nil {
		t.Fatal(err)
	}
	if a != "" || r != "" {
		t.Errorf("tokens after clear = %q/%q", a, r)
	}
}
