// Package apiclient is the HTTP client for the assistant backend service.
package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/chat"
)

const unaryTimeout = 15 * time.Second

// maxStreamLine bounds a single ndjson stream line. Argument chunks are
// small; a line past this indicates a misbehaving backend.
const maxStreamLine = 1 << 20

// Client talks to the assistant backend over HTTP. Unary calls use a 15s
// timeout client; the chat stream has no timeout.
type Client struct {
	baseURL string
	apiKey  string

	httpc   *http.Client
	streamc *http.Client
}

var _ assistant.Client = (*Client)(nil)

// New creates a backend client for the given base URL.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: unaryTimeout},
		streamc: &http.Client{},
	}
}

// Search returns up to k snippets relevant to the query.
func (c *Client) Search(ctx context.Context, query string, k int) ([]chat.Snippet, error) {
	body := map[string]any{"query": query, "n_results": k}

	var resp struct {
		Snippets []chat.Snippet `json:"snippets"`
	}
	if err := c.postJSON(ctx, "/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return resp.Snippets, nil
}

// StreamChat opens the streaming chat endpoint. The response body is
// newline-delimited JSON, one StreamEvent per line.
func (c *Client) StreamChat(ctx context.Context, history chat.History, snippets []chat.Snippet) (assistant.Stream, error) {
	body := map[string]any{"messages": history, "snippets": snippets}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("stream chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("stream chat: create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.streamc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream chat: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer closeBody(resp)
		return nil, fmt.Errorf("stream chat: %s", errorStatus(resp))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	return &ndjsonStream{body: resp.Body, scanner: scanner}, nil
}

// CreatePR asks the backend to implement the plan and open a pull request.
func (c *Client) CreatePR(ctx context.Context, changes []assistant.FileChangeRequest, pr assistant.PullRequest, history chat.History) (assistant.CreatedPR, error) {
	body := map[string]any{
		"file_change_requests": changes,
		"pull_request":         pr,
		"messages":             history,
	}

	var created assistant.CreatedPR
	if err := c.postJSON(ctx, "/create_pr", body, &created); err != nil {
		return assistant.CreatedPR{}, fmt.Errorf("create pr: %w", err)
	}
	return created, nil
}

// InstallationID resolves the GitHub-app installation for a repository.
func (c *Client) InstallationID(ctx context.Context, repoFullName string) (int64, error) {
	u := c.baseURL + "/installation_id?repo_full_name=" + url.QueryEscape(repoFullName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("installation id: create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("installation id: %w", err)
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("installation id: %s", errorStatus(resp))
	}

	var out struct {
		InstallationID int64 `json:"installation_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("installation id: decode response: %w", err)
	}
	if out.InstallationID == 0 {
		return 0, fmt.Errorf("installation id: repository %q has no installation", repoFullName)
	}

	return out.InstallationID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", errorStatus(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "seam")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func errorStatus(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		log.Debug().Err(err).Msg("apiclient: close response body")
	}
}

// ndjsonStream reads StreamEvents from a newline-delimited JSON body.
type ndjsonStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

var _ assistant.Stream = (*ndjsonStream)(nil)

// Recv returns the next event, or io.EOF when the body ends.
func (s *ndjsonStream) Recv() (assistant.StreamEvent, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev assistant.StreamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return assistant.StreamEvent{}, fmt.Errorf("decode stream event: %w", err)
		}
		return ev, nil
	}

	if err := s.scanner.Err(); err != nil {
		return assistant.StreamEvent{}, fmt.Errorf("read stream: %w", err)
	}
	return assistant.StreamEvent{}, io.EOF
}

// Close closes the underlying response body.
func (s *ndjsonStream) Close() error {
	return s.body.Close()
}
