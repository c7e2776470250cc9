package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmelo/ragchat/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// makeJWT builds an unsigned JWT with the given expiry, enough for
// unverified claim inspection.
func makeJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"exp": exp.Unix()})
	require.NoError(t, err)
	claims := base64.RawURLEncoding.EncodeToString(payload)
	return fmt.Sprintf("%s.%s.sig", header, claims)
}

func TestAccessToken(t *testing.T) {
	db := testDB(t)
	m := NewManager(db, "http://unused", nil)

	_, ok := m.AccessToken()
	require.False(t, ok)

	require.NoError(t, db.SaveTokens("acc", "ref"))
	tok, ok := m.AccessToken()
	require.True(t, ok)
	require.Equal(t, "acc", tok)
}

func TestValid(t *testing.T) {
	db := testDB(t)
	m := NewManager(db, "http://unused", nil)

	require.False(t, m.Valid(), "no token")

	require.NoError(t, db.SaveTokens("not-a-jwt", "ref"))
	require.False(t, m.Valid(), "malformed token")

	require.NoError(t, db.SaveTokens(makeJWT(t, time.Now().Add(-time.Hour)), "ref"))
	require.False(t, m.Valid(), "expired token")

	require.NoError(t, db.SaveTokens(makeJWT(t, time.Now().Add(time.Hour)), "ref"))
	require.True(t, m.Valid(), "fresh token")
}

func TestRefreshSavesNewPair(t *testing.T) {
	db := testDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "old-refresh", body["refreshToken"])
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "new-access",
			"refreshToken": "new-refresh",
		})
	}))
	defer srv.Close()

	require.NoError(t, db.SaveTokens("old-access", "old-refresh"))
	m := NewManager(db, srv.URL, nil)

	require.NoError(t, m.Refresh(context.Background()))

	a, r, err := db.LoadTokens()
	require.NoError(t, err)
	require.Equal(t, "new-access", a)
	require.Equal(t, "new-refresh", r)
}

func TestRefreshRejectedClearsTokens(t *testing.T) {
	db := testDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	require.NoError(t, db.SaveTokens("acc", "ref"))
	m := NewManager(db, srv.URL, nil)

	err := m.Refresh(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)

	a, r, loadErr := db.LoadTokens()
	require.NoError(t, loadErr)
	require.Empty(t, a)
	require.Empty(t, r)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	db := testDB(t)
	m := NewManager(db, "http://unused", nil)

	err := m.Refresh(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
}
