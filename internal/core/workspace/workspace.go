// Package workspace holds the per-repository UI session state: the selected
// repo, pinned files and their rendered previews, the snippets markdown
// block, and the pending PR proposal.
//
// A Workspace has a single writer: the active turn, or selection handlers
// running between turns. It needs no locking.
package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/seam/internal/core/proposal"
)

// SnippetsHeader opens the snippets markdown block shown beside the chat.
const SnippetsHeader = "### Relevant snippets:"

const previewLines = 3

// Workspace is the mutable session context for one repository selection.
type Workspace struct {
	repo     string
	listing  []string
	selected []string
	previews map[string]string

	// Pending is the at-most-one active PR proposal. A new completed
	// create_pr call overwrites it.
	Pending *proposal.Proposal

	// SnippetsText is the markdown block currently shown to the user.
	SnippetsText string
}

// New returns an empty workspace.
func New() *Workspace {
	return &Workspace{previews: map[string]string{}}
}

// Repo returns the selected repository's full name, or "".
func (w *Workspace) Repo() string { return w.repo }

// Reset switches the workspace to a new repository, dropping the file
// listing, selection, preview cache, snippets block, and pending proposal.
func (w *Workspace) Reset(repoFullName string) {
	w.repo = repoFullName
	w.listing = nil
	w.selected = nil
	w.previews = map[string]string{}
	w.Pending = nil
	w.SnippetsText = ""
}

// SetListing stores the repository's file listing, fetched once per
// repository selection.
func (w *Workspace) SetListing(paths []string) {
	w.listing = paths
}

// Listing returns the cached file listing.
func (w *Workspace) Listing() []string { return w.listing }

// Selected returns the pinned files in selection order.
func (w *Workspace) Selected() []string { return w.selected }

// SetSelected replaces the selection. Previews for deselected files stay
// cached so re-selecting them costs nothing.
func (w *Workspace) SetSelected(paths []string) {
	w.selected = append([]string(nil), paths...)
}

// HasPreview reports whether a rendered preview is cached for the path.
func (w *Workspace) HasPreview(path string) bool {
	_, ok := w.previews[path]
	return ok
}

// CachePreview renders and caches a preview for the file's content.
func (w *Workspace) CachePreview(path, content string) {
	w.previews[path] = RenderPreview(path, content)
}

// BuildSnippetsText composes the snippets markdown block from the previews
// of the currently selected files.
func (w *Workspace) BuildSnippetsText() string {
	parts := make([]string, 0, len(w.selected))
	for _, path := range w.selected {
		if p, ok := w.previews[path]; ok {
			parts = append(parts, p)
		}
	}
	return SnippetsHeader + "\n" + strings.Join(parts, "\n\n")
}

// ExpandGlob matches a doublestar pattern against the cached file listing
// and returns the matches in listing order.
func (w *Workspace) ExpandGlob(pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}

	var matches []string
	for _, path := range w.listing {
		ok, err := doublestar.Match(pattern, path)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, path)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// RenderPreview renders a file preview: the path with its line count and a
// fenced block of the first lines, ellipsized. Backticks are escaped so the
// preview cannot break out of the fence.
func RenderPreview(path, content string) string {
	lines := strings.Split(content, "\n")
	total := len(lines)
	if len(lines) > previewLines {
		lines = lines[:previewLines]
	}
	preview := EscapeBackticks(strings.Join(lines, "\n"))
	return fmt.Sprintf("%s:0:%d\n```\n%s\n...\n```", path, total, preview)
}

// EscapeBackticks escapes literal backticks so embedded content cannot
// terminate a surrounding code fence.
func EscapeBackticks(s string) string {
	return strings.ReplaceAll(s, "`", "\\`")
}
