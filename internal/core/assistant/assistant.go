// Package assistant defines the boundary to the remote assistant service:
// snippet search, streaming chat, and pull-request creation.
package assistant

import (
	"context"

	"github.com/colonyops/seam/internal/core/chat"
)

// FunctionCallDelta is one fragment of an incrementally delivered function
// call. Name is usually present only on the first fragment; Arguments is a
// partial JSON chunk to be concatenated with its neighbors.
type FunctionCallDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamEvent is one fragment of the assistant's response stream. Either
// side may be empty; content and function-call fragments can interleave.
type StreamEvent struct {
	Content      string             `json:"content,omitempty"`
	FunctionCall *FunctionCallDelta `json:"function_call,omitempty"`
}

// Stream is an open, in-order, finite sequence of response fragments.
// Recv returns io.EOF when the stream ends normally.
type Stream interface {
	Recv() (StreamEvent, error)
	Close() error
}

// FileChangeRequest names a file and the edit the backend should make to it.
type FileChangeRequest struct {
	Path         string `json:"file_path"`
	Instructions string `json:"instructions"`
}

// PullRequest is the descriptor sent with a create-PR call.
type PullRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	BranchName string `json:"branch_name"`
}

// CreatedPR is the backend's response to a successful PR creation.
type CreatedPR struct {
	HTMLURL string `json:"html_url"`
}

// Searcher finds repository snippets relevant to a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]chat.Snippet, error)
}

// ChatStreamer opens a streaming chat completion for the given history and
// snippet context.
type ChatStreamer interface {
	StreamChat(ctx context.Context, history chat.History, snippets []chat.Snippet) (Stream, error)
}

// PRCreator asks the backend to implement and open a pull request.
type PRCreator interface {
	CreatePR(ctx context.Context, changes []FileChangeRequest, pr PullRequest, history chat.History) (CreatedPR, error)
}

// Installations resolves the GitHub-app installation for a repository.
type Installations interface {
	InstallationID(ctx context.Context, repoFullName string) (int64, error)
}

// Client aggregates every capability of the assistant service.
type Client interface {
	Searcher
	ChatStreamer
	PRCreator
	Installations
}
