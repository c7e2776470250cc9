package store

import (
	"encoding/json"

	"github.com/dmelo/ragchat/internal/chat"
	"github.com/dmelo/ragchat/internal/document"
)

// Storage keys. The per-thread keys are suffixed with the thread id,
// matching the layout of the web client this app replaces.
const (
	keyThreads       = "chat_threads"
	keyCurrentThread = "current_thread_id"
	keyAccessToken   = "access_token"
	keyRefreshToken  = "refresh_token"

	prefixMessages  = "chat_messages_"
	prefixDocuments = "documents_"
)

// SaveThreads persists the full thread list under a single key.
func (db *DB) SaveThreads(threads []chat.Thread) error {
	return db.putJSON(keyThreads, threads)
}

// LoadThreads returns the persisted thread list. A missing key or
// corrupt blob yields an empty list, never an error: local state is
// best-effort and must not wedge startup.
func (db *DB) LoadThreads() ([]chat.Thread, error) {
	return loadJSON[[]chat.Thread](db, keyThreads)
}

// SaveMessages persists one thread's message array.
func (db *DB) SaveMessages(threadID string, msgs []chat.Message) error {
	return db.putJSON(prefixMessages+threadID, msgs)
}

// LoadMessages returns one thread's persisted messages (empty on
// missing or corrupt data).
func (db *DB) LoadMessages(threadID string) ([]chat.Message, error) {
	return loadJSON[[]chat.Message](db, prefixMessages+threadID)
}

// SaveDocuments persists one thread's document map.
func (db *DB) SaveDocuments(threadID string, docs map[string]document.Summary) error {
	return db.putJSON(prefixDocuments+threadID, docs)
}

// LoadDocuments returns one thread's persisted document map (empty on
// missing or corrupt data).
func (db *DB) LoadDocuments(threadID string) (map[string]document.Summary, error) {
	docs, err := loadJSON[map[string]document.Summary](db, prefixDocuments+threadID)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = make(map[string]document.Summary)
	}
	return docs, nil
}

// SaveCurrentThread persists the current-thread pointer.
func (db *DB) SaveCurrentThread(threadID string) error {
	return db.Put(keyCurrentThread, []byte(threadID))
}

// LoadCurrentThread returns the persisted pointer ("" if unset).
func (db *DB) LoadCurrentThread() (string, error) {
	v, err := db.Get(keyCurrentThread)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// DeleteThread removes a thread's per-thread keys. The thread list
// itself is saved separately by the caller.
func (db *DB) DeleteThread(threadID string) error {
	if err := db.Delete(prefixMessages + threadID); err != nil {
		return err
	}
	return db.Delete(prefixDocuments + threadID)
}

// SaveTokens persists the auth token pair.
func (db *DB) SaveTokens(accessToken, refreshToken string) error {
	if err := db.Put(keyAccessToken, []byte(accessToken)); err != nil {
		return err
	}
	return db.Put(keyRefreshToken, []byte(refreshToken))
}

// LoadTokens returns the persisted token pair ("" for absent tokens).
func (db *DB) LoadTokens() (accessToken, refreshToken string, err error) {
	a, err := db.Get(keyAccessToken)
	if err != nil {
		return "", "", err
	}
	r, err := db.Get(keyRefreshToken)
	if err != nil {
		return "", "", err
	}
	return string(a), string(r), nil
}

// ClearTokens removes the persisted token pair.
func (db *DB) ClearTokens() error {
	if err := db.Delete(keyAccessToken); err != nil {
		return err
	}
	return db.Delete(keyRefreshToken)
}

func (db *DB) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Put(key, data)
}

// loadJSON reads and unmarshals the blob under key. Absent keys and
// corrupt blobs both yield the zero value: local state is best-effort
// and a bad blob must not wedge startup.
func loadJSON[T any](db *DB, key string) (T, error) {
	var zero T
	data, err := db.Get(key)
	if err != nil {
		return zero, err
	}
	if len(data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, nil
	}
	return v, nil
}
