// Package upload pushes finished files to Google Photos. It is an
// optional collaborator: the batch runs identically with no uploader
// configured.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Google Photos Library API endpoint.
const DefaultBaseURL = "https://photoslibrary.googleapis.com"

var (
	// ErrAuthExpired indicates the stored credential was rejected and the
	// user needs to re-run the auth flow.
	ErrAuthExpired = errors.New("upload credential expired or revoked")
	// ErrQuotaExceeded indicates the account is out of storage.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// TransientError wraps a network or server-side failure that a later
// retry could succeed on.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient upload error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Uploader is the capability the batch orchestrator depends on. A nil
// Uploader disables the upload step entirely.
type Uploader interface {
	Upload(ctx context.Context, path string) (remoteID string, err error)
}

// Client uploads files using a pre-established OAuth token.
type Client struct {
	http    *http.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a Client from the persisted token file. The token's
// contents are opaque to the rest of the program; only this package reads
// it.
func NewClient(ctx context.Context, conf *oauth2.Config, tokenPath string, opts ...Option) (*Client, error) {
	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load upload credential: %w", err)
	}
	c := &Client{
		http:    oauth2.NewClient(ctx, conf.TokenSource(ctx, tok)),
		baseURL: DefaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	c.http.Timeout = 10 * time.Minute
	return c, nil
}

// Upload sends the file's bytes, then registers them as a media item.
// It returns the remote media item ID.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	uploadToken, err := c.uploadBytes(ctx, filepath.Base(path), f)
	if err != nil {
		return "", err
	}
	return c.createMediaItem(ctx, filepath.Base(path), uploadToken)
}

func (c *Client) uploadBytes(ctx context.Context, name string, r io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/uploads", r)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-Upload-File-Name", name)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(body)), nil
}

func (c *Client) createMediaItem(ctx context.Context, name, uploadToken string) (string, error) {
	payload := map[string]any{
		"newMediaItems": []map[string]any{
			{
				"description": "",
				"simpleMediaItem": map[string]string{
					"fileName":    name,
					"uploadToken": uploadToken,
				},
			},
		},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/mediaItems:batchCreate", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransientError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return "", err
	}

	var out struct {
		NewMediaItemResults []struct {
			Status struct {
				Message string `json:"message"`
			} `json:"status"`
			MediaItem struct {
				ID string `json:"id"`
			} `json:"mediaItem"`
		} `json:"newMediaItemResults"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse batchCreate response: %w", err)
	}
	if len(out.NewMediaItemResults) == 0 {
		return "", errors.New("batchCreate returned no results")
	}
	item := out.NewMediaItemResults[0]
	if item.MediaItem.ID == "" {
		return "", fmt.Errorf("media item rejected: %s", item.Status.Message)
	}
	return item.MediaItem.ID, nil
}

// classifyStatus maps HTTP status codes to the typed failures callers
// branch on.
func classifyStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return ErrAuthExpired
	case code == http.StatusForbidden && bytes.Contains(body, []byte("quota")):
		return ErrQuotaExceeded
	case code == http.StatusTooManyRequests:
		return ErrQuotaExceeded
	case code >= 500:
		return &TransientError{Err: fmt.Errorf("server returned %d", code)}
	default:
		return fmt.Errorf("upload rejected with status %d", code)
	}
}
