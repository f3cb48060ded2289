// Package github is a minimal GitHub REST client for repository and file
// listing.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/seam/internal/core/kv"
)

const (
	perPage      = 100
	treeCacheTTL = 10 * time.Minute
)

// Repo is a repository visible to the token.
type Repo struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
}

// Client calls the GitHub REST API with a personal access token.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client

	// treeCache holds file listings per repository. Invalidated implicitly
	// by TTL; repository switches just use a different key.
	treeCache *kv.TypedKV[[]string]
}

// New creates a client. kvStore may be nil to disable listing caches.
func New(baseURL, token string, kvStore kv.KV) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
	if kvStore != nil {
		c.treeCache = kv.Scoped[[]string](kvStore, "github.tree")
	}
	return c
}

// ListRepos returns the repositories visible to the token, paginated until
// exhausted.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	var all []Repo

	for page := 1; ; page++ {
		path := fmt.Sprintf("/user/repos?affiliation=owner,collaborator&per_page=%d&page=%d", perPage, page)

		var repos []Repo
		if err := c.getJSON(ctx, path, &repos); err != nil {
			return nil, fmt.Errorf("list repos: %w", err)
		}

		all = append(all, repos...)
		if len(repos) < perPage {
			return all, nil
		}
	}
}

// ListFiles returns the full recursive blob listing for the repository's
// default branch, cached per repository.
func (c *Client) ListFiles(ctx context.Context, repoFullName string) ([]string, error) {
	if c.treeCache != nil {
		if cached, err := c.treeCache.Get(ctx, repoFullName); err == nil {
			return cached, nil
		}
	}

	var tree struct {
		Tree []struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"tree"`
		Truncated bool `json:"truncated"`
	}
	path := fmt.Sprintf("/repos/%s/git/trees/HEAD?recursive=1", repoFullName)
	if err := c.getJSON(ctx, path, &tree); err != nil {
		return nil, fmt.Errorf("list files %q: %w", repoFullName, err)
	}

	var files []string
	for _, entry := range tree.Tree {
		if entry.Type == "blob" {
			files = append(files, entry.Path)
		}
	}

	if tree.Truncated {
		log.Warn().Str("repo", repoFullName).Msg("github tree listing truncated")
	}

	if c.treeCache != nil {
		if err := c.treeCache.SetTTL(ctx, repoFullName, files, treeCacheTTL); err != nil {
			log.Debug().Err(err).Msg("github: cache tree listing")
		}
	}

	return files, nil
}

// FileContent fetches and decodes a file through the contents API.
func (c *Client) FileContent(ctx context.Context, repoFullName, filePath string) (string, error) {
	var out struct {
		Encoding string `json:"encoding"`
		Content  string `json:"content"`
	}
	path := fmt.Sprintf("/repos/%s/contents/%s", repoFullName, escapePath(filePath))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return "", fmt.Errorf("file content %q: %w", filePath, err)
	}

	if out.Encoding != "base64" {
		return out.Content, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("file content %q: decode: %w", filePath, err)
	}
	return string(decoded), nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "seam")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("github: close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// escapePath escapes each segment of a repo-relative path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
