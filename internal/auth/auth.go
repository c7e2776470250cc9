package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dmelo/ragchat/internal/store"
)

// ErrSessionExpired is returned when the refresh token is missing or
// rejected. Callers must treat the session as logged out.
var ErrSessionExpired = errors.New("session expired")

// Manager holds the token pair for the backend session and refreshes it
// on demand. Tokens are persisted in the local KV store so a restarted
// daemon resumes the session.
type Manager struct {
	db      *store.DB
	httpc   *http.Client
	baseURL string
	logger  *zap.Logger

	mu sync.Mutex
}

// NewManager creates a token manager against the given API base URL.
func NewManager(db *store.DB, baseURL string, logger *zap.Logger) *Manager {
	return &Manager{
		db:      db,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		logger:  logger,
	}
}

// AccessToken returns the stored access token, if any.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	access, _, err := m.db.LoadTokens()
	if err != nil || access == "" {
		return "", false
	}
	return access, true
}

// Valid reports whether the stored access token exists and its exp
// claim lies in the future. The signature is not verified; the backend
// is the authority, this is only a cheap local pre-check.
func (m *Manager) Valid() bool {
	access, ok := m.AccessToken()
	if !ok {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.After(time.Now())
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges the stored refresh token for a new token pair and
// persists it. A missing or rejected refresh token clears the stored
// pair and returns ErrSessionExpired.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, refresh, err := m.db.LoadTokens()
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if refresh == "" {
		return ErrSessionExpired
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refresh})
	if err != nil {
		return fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if clearErr := m.db.ClearTokens(); clearErr != nil && m.logger != nil {
			m.logger.Warn("failed to clear tokens", zap.Error(clearErr))
		}
		return ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh token: unexpected status %d", resp.StatusCode)
	}

	var rr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}

	if err := m.db.SaveTokens(rr.AccessToken, rr.RefreshToken); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

// Clear removes the stored token pair.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.ClearTokens()
}
