// Package github adapts the GitHub repository contents API to the file-tree
// operations the sync core needs: recursive listing, read, conditional write
// and conditional delete, each keyed by a path and an opaque version token
// (the blob SHA). Error classification happens here and only here.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/matt1as/noteeverything/internal/errors"
	"github.com/matt1as/noteeverything/internal/models"
)

const defaultBaseURL = "https://api.github.com"

const (
	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads. File content arrives
	// base64-encoded inside a JSON envelope, so this also bounds the
	// largest note the client will pull.
	maxAPIResponseBytes = 16 * 1024 * 1024
)

// Entry is one item of a directory listing.
type Entry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// File describes one remote file: its location and the version token needed
// to safely overwrite or delete it. The token must be carried faithfully
// from listing to write, since it is the only write-safety mechanism.
type File struct {
	Path string
	Name string
	SHA  string
}

// Client talks to the GitHub contents API on behalf of one credential.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a contents-API client with the given bearer token.
// If httpClient is nil, a client with a 30-second timeout is created.
func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewClientAt creates a client against a custom API base URL. Used by tests
// to point the adapter at an httptest server.
func NewClientAt(token, baseURL string, httpClient *http.Client) *Client {
	c := NewClient(token, httpClient)
	c.baseURL = baseURL

	return c
}

// contentsURL builds the contents-API URL for a path within the repo.
func (c *Client) contentsURL(cfg models.RepoConfig, path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL,
		url.PathEscape(cfg.Owner),
		url.PathEscape(cfg.Repo),
		escapePath(path),
		url.QueryEscape(cfg.ResolveBranch()),
	)
}

// escapePath escapes each path segment while preserving the separators.
func escapePath(path string) string {
	return (&url.URL{Path: path}).EscapedPath()
}

// do executes a request and returns the response body. Non-2xx statuses are
// classified into the closed error taxonomy: 404 is ErrNotFound, 401/403 is
// ErrUnauthorized, 5xx and 429 are ErrTransient, everything else is a plain
// wrapped error carrying the API message.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) ([]byte, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors (timeouts, refused connections, DNS failures)
		// are transient by nature.
		return nil, fmt.Errorf("%w: %s %s: %v", apperrors.ErrTransient, method, rawURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	msg := gjson.GetBytes(respBody, "message").Str
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, msg)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, msg)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: API returned %d: %s", apperrors.ErrTransient, resp.StatusCode, msg)
	default:
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, msg)
	}
}

// List returns the entries of a directory. Fails with ErrNotFound when the
// path does not exist on the branch.
func (c *Client) List(ctx context.Context, cfg models.RepoConfig, path string) ([]Entry, error) {
	body, err := c.do(ctx, http.MethodGet, c.contentsURL(cfg, path), nil)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		// A file path returns a single object instead of an array.
		// Listing a file is a caller bug, but tolerate it.
		var single Entry
		if err2 := json.Unmarshal(body, &single); err2 == nil && single.Path != "" {
			return []Entry{single}, nil
		}

		return nil, fmt.Errorf("decoding listing of %s: %w", path, err)
	}

	return entries, nil
}

// Read fetches a file's content and its version token.
func (c *Client) Read(ctx context.Context, cfg models.RepoConfig, path string) ([]byte, string, error) {
	body, err := c.do(ctx, http.MethodGet, c.contentsURL(cfg, path), nil)
	if err != nil {
		return nil, "", err
	}

	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		SHA      string `json:"sha"`
	}
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, "", fmt.Errorf("decoding file %s: %w", path, err)
	}

	if file.Encoding != "base64" {
		return nil, "", fmt.Errorf("unexpected encoding %q for %s", file.Encoding, path)
	}

	content, err := base64.StdEncoding.DecodeString(removeWhitespace(file.Content))
	if err != nil {
		return nil, "", fmt.Errorf("decoding content of %s: %w", path, err)
	}

	return content, file.SHA, nil
}

// Write creates or updates a file. An empty sha means create; a non-empty
// sha means conditional update, which the API rejects when the token is
// stale rather than silently overwriting.
func (c *Client) Write(ctx context.Context, cfg models.RepoConfig, path string, content []byte, message, sha string) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  cfg.ResolveBranch(),
	}
	if sha != "" {
		payload["sha"] = sha
	}

	if _, err := c.do(ctx, http.MethodPut, c.contentsURL(cfg, path), payload); err != nil {
		return err
	}

	return nil
}

// Delete removes a file using its version token.
func (c *Client) Delete(ctx context.Context, cfg models.RepoConfig, path, message, sha string) error {
	payload := map[string]string{
		"message": message,
		"sha":     sha,
		"branch":  cfg.ResolveBranch(),
	}

	if _, err := c.do(ctx, http.MethodDelete, c.contentsURL(cfg, path), payload); err != nil {
		return err
	}

	return nil
}

// IsNotFound reports whether err is the adapter's not-found classification.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// removeWhitespace strips the line breaks GitHub inserts into base64 bodies.
func removeWhitespace(s string) string {
	buf := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n', '\r', ' ', '\t':
		default:
			buf = append(buf, s[i])
		}
	}

	return string(buf)
}
