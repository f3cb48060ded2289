// Package chat defines conversation domain types and interfaces.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a session does not exist in the store.
var ErrNotFound = errors.New("chat session not found")

// Turn is one user message paired with the assistant's response.
// Either side may be nil: the user slot is nil for status rows the
// assistant emits on its own, and the assistant slot is nil until
// streaming for the turn begins.
type Turn struct {
	User      *string `json:"user"`
	Assistant *string `json:"assistant"`
}

// UserTurn returns a turn holding only a user message.
func UserTurn(msg string) Turn {
	return Turn{User: &msg}
}

// History is the ordered sequence of turns in a conversation. It is
// append-only except that the last turn's assistant slot is rewritten in
// place while a response streams.
type History []Turn

// Append returns the history with the turn added.
func (h History) Append(t Turn) History {
	return append(h, t)
}

// LastUser returns the most recent turn's user message, or "" when the
// history is empty or the last turn has no user side.
func (h History) LastUser() string {
	if len(h) == 0 || h[len(h)-1].User == nil {
		return ""
	}
	return *h[len(h)-1].User
}

// SetLastAssistant overwrites the assistant slot of the last turn.
// No-op on an empty history.
func (h History) SetLastAssistant(msg string) {
	if len(h) == 0 {
		return
	}
	h[len(h)-1].Assistant = &msg
}

// Clone returns a deep copy. Turns hold pointers, so a shallow slice copy
// would let the streaming writer mutate snapshots already handed to the UI.
func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, t := range h {
		if t.User != nil {
			u := *t.User
			out[i].User = &u
		}
		if t.Assistant != nil {
			a := *t.Assistant
			out[i].Assistant = &a
		}
	}
	return out
}

// Snippet is a titled excerpt of repository source returned by search.
// Immutable once fetched.
type Snippet struct {
	Denotation string `json:"denotation"`
	Content    string `json:"content"`
}

// Preview returns the first n lines of the snippet content.
func (s Snippet) Preview(n int) string {
	lines := strings.Split(s.Content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

// Session is a persisted conversation against a single repository.
type Session struct {
	ID           string    `json:"id"`
	RepoFullName string    `json:"repo_full_name"`
	Turns        History   `json:"turns"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists chat sessions.
type Store interface {
	// Save upserts the session and all of its turns.
	Save(ctx context.Context, s Session) error
	// Get returns a session by ID, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)
	// List returns all sessions ordered by most recently updated.
	List(ctx context.Context) ([]Session, error)
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
