// Package proposal models a pending pull-request proposal: a structured PR
// description parsed from a create_pr function call, awaiting the user's
// confirmation.
package proposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingField is returned when a create_pr argument object lacks one of
// its required keys.
var ErrMissingField = errors.New("create_pr arguments missing required field")

const maxBranchLen = 50

// FileChange is one file-level step of a proposed PR plan.
type FileChange struct {
	Path         string `json:"file_path"`
	Instructions string `json:"instructions"`
}

// Proposal is a PR plan waiting for the user to confirm with "ok".
type Proposal struct {
	Title   string
	Summary string
	Plan    []FileChange
	Branch  string
}

// Parse builds a Proposal from a create_pr argument object. Required keys
// are title, summary, and plan; an empty plan array is valid, a missing one
// is not. When branch is absent it is derived from the title.
func Parse(raw json.RawMessage) (Proposal, error) {
	var args struct {
		Title   *string         `json:"title"`
		Summary *string         `json:"summary"`
		Plan    json.RawMessage `json:"plan"`
		Branch  string          `json:"branch"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return Proposal{}, fmt.Errorf("decode create_pr arguments: %w", err)
	}

	switch {
	case args.Title == nil:
		return Proposal{}, fmt.Errorf("%w: title", ErrMissingField)
	case args.Summary == nil:
		return Proposal{}, fmt.Errorf("%w: summary", ErrMissingField)
	case args.Plan == nil:
		return Proposal{}, fmt.Errorf("%w: plan", ErrMissingField)
	}

	var plan []FileChange
	if err := json.Unmarshal(args.Plan, &plan); err != nil {
		return Proposal{}, fmt.Errorf("decode create_pr plan: %w", err)
	}

	branch := args.Branch
	if branch == "" {
		branch = DeriveBranch(*args.Title)
	}

	return Proposal{
		Title:   *args.Title,
		Summary: *args.Summary,
		Plan:    plan,
		Branch:  branch,
	}, nil
}

// DeriveBranch produces a deterministic branch name from a PR title:
// lower-cased, spaces and hyphens replaced with underscores, truncated to
// 50 characters. The cap counts runes so a multi-byte title cannot be cut
// mid-character.
func DeriveBranch(title string) string {
	b := strings.ToLower(title)
	b = strings.ReplaceAll(b, " ", "_")
	b = strings.ReplaceAll(b, "-", "_")
	if r := []rune(b); len(r) > maxBranchLen {
		b = string(r[:maxBranchLen])
	}
	return b
}

// IsConfirmation reports whether a user message confirms the pending
// proposal: the message trimmed and lower-cased must be exactly "ok" or
// "okay". Anything else is ordinary conversation.
func IsConfirmation(msg string) bool {
	switch strings.ToLower(strings.TrimSpace(msg)) {
	case "ok", "okay":
		return true
	default:
		return false
	}
}

const summaryTemplate = `💡 I'll create the following PR:

**%s**
%s

Here is my plan:
%s

Reply with "ok" to create the PR or anything else to propose changes.`

// RenderSummary renders the confirmation message shown when the proposal
// becomes pending. It fully replaces the assistant's message for the turn.
func (p Proposal) RenderSummary() string {
	lines := make([]string, len(p.Plan))
	for i, fc := range p.Plan {
		lines[i] = fmt.Sprintf("* `%s`: %s", fc.Path, fc.Instructions)
	}
	return fmt.Sprintf(summaryTemplate, p.Title, p.Summary, strings.Join(lines, "\n"))
}
