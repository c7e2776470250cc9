// Package client talks to the RAG chat backend: synchronous completion,
// document ingestion, and the SSE streaming endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/dmelo/ragchat/internal/chat"
)

// TokenProvider supplies and refreshes the bearer token for requests.
type TokenProvider interface {
	AccessToken() (string, bool)
	Refresh(ctx context.Context) error
}

// Client is the backend API client. All requests carry the bearer token
// when one is available; a 401 triggers one refresh-and-retry, after
// which the failure is surfaced.
type Client struct {
	httpc   *http.Client
	streamc *http.Client
	baseURL string
	tokens  TokenProvider
	logger  *zap.Logger
}

// New creates a client for the given API base URL.
func New(baseURL string, tokens TokenProvider, logger *zap.Logger) *Client {
	return &Client{
		httpc: &http.Client{Timeout: 60 * time.Second},
		// No client timeout for streams: the body stays open for the
		// whole response. Cancellation happens via request context.
		streamc: &http.Client{},
		baseURL: baseURL,
		tokens:  tokens,
		logger:  logger,
	}
}

// ChatRequest is the synchronous completion request body.
type ChatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

// ChatResponse is the synchronous completion response.
type ChatResponse struct {
	ThreadID string        `json:"thread_id"`
	Answer   string        `json:"answer"`
	Sources  []chat.Source `json:"sources"`
}

// SendMessage posts a message to the completion endpoint and returns
// the full assistant answer.
func (c *Client) SendMessage(ctx context.Context, content, threadID string) (*ChatResponse, error) {
	body, err := json.Marshal(ChatRequest{Message: content, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	resp, err := c.do(ctx, c.httpc, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat: unexpected status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &cr, nil
}

// IngestResponse is the upload endpoint's response.
type IngestResponse struct {
	ThreadID  string `json:"thread_id"`
	Filename  string `json:"filename"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// UploadDocument posts a file as multipart form data with thread_id as
// a query parameter and returns the ingestion summary.
func (c *Client) UploadDocument(ctx context.Context, filename string, data []byte, threadID string) (*IngestResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	uploadURL := c.baseURL + "/upload-pdf?thread_id=" + url.QueryEscape(threadID)
	payload := buf.Bytes()

	resp, err := c.do(ctx, c.httpc, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
	}

	var ir IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("decode ingest response: %w", err)
	}
	return &ir, nil
}

type streamRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"threadId"`
}

// OpenStream opens the SSE streaming endpoint for a message. The caller
// owns the returned body and must close it on every exit path.
func (c *Client) OpenStream(ctx context.Context, message, threadID string) (io.ReadCloser, error) {
	body, err := json.Marshal(streamRequest{Message: message, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("encode stream request: %w", err)
	}

	resp, err := c.do(ctx, c.streamc, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// do sends the request with the bearer token attached. On 401 it
// refreshes the token once and retries; a failed refresh surfaces
// (typically auth.ErrSessionExpired) so the caller can force a logout.
func (c *Client) do(ctx context.Context, httpc *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	resp, err := c.send(httpc, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || c.tokens == nil {
		return resp, nil
	}

	_ = resp.Body.Close()
	if c.logger != nil {
		c.logger.Info("got 401, refreshing token")
	}
	if err := c.tokens.Refresh(ctx); err != nil {
		return nil, err
	}
	return c.send(httpc, build)
}

func (c *Client) send(httpc *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.tokens != nil {
		if tok, ok := c.tokens.AccessToken(); ok {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return httpc.Do(req)
}
