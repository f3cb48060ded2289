// Package seam orchestrates chat turns: snippet search, streamed assistant
// output, and the pending PR proposal lifecycle.
package seam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/core/config"
	"github.com/colonyops/seam/internal/core/proposal"
	"github.com/colonyops/seam/internal/core/workspace"
	"github.com/colonyops/seam/pkg/randid"
)

// searchFanout is the fixed number of snippets requested per search.
const searchFanout = 3

const snippetPreviewLines = 5

// installAppURL is opened when a repository has no GitHub-app installation.
const installAppURL = "https://github.com/apps/sweep-ai"

// In-stream status placeholders shown in the assistant slot.
const (
	statusSearching = "Searching for relevant snippets..."
	statusFound     = "Found relevant snippets."
	statusCreating  = "⏳ Creating PR..."
	statusFetching  = "Fetching endpoint..."
)

// RepoFiles is the slice of the GitHub client the service needs for file
// selection.
type RepoFiles interface {
	ListFiles(ctx context.Context, repoFullName string) ([]string, error)
	FileContent(ctx context.Context, repoFullName, path string) (string, error)
}

// TurnUpdate is one renderable suspension point of a streaming turn. The
// final update of a failed turn carries Err.
type TurnUpdate struct {
	History      chat.History
	SnippetsText string
	Err          error
}

// Deps wires the service's collaborators.
type Deps struct {
	// Backend is the assistant service (search, PR creation, installation
	// lookup, and the default chat stream).
	Backend assistant.Client
	// Streamer overrides where chat completions come from; nil uses
	// Backend.
	Streamer assistant.ChatStreamer
	// Repos provides file listings and contents.
	Repos RepoFiles
	// Store persists chat sessions; nil disables persistence.
	Store chat.Store
	// OpenURL opens a URL in the user's browser; nil disables the
	// installation redirect.
	OpenURL func(ctx context.Context, url string) error

	Config *config.Config
	Logger zerolog.Logger
}

// Service runs the chat-session orchestration loop. One active turn at a
// time; the workspace is mutated only by the active turn or by selection
// handlers running between turns.
type Service struct {
	backend  assistant.Client
	streamer assistant.ChatStreamer
	repos    RepoFiles
	store    chat.Store
	openURL  func(ctx context.Context, url string) error
	cfg      *config.Config
	log      zerolog.Logger

	ws         *workspace.Workspace
	sessionID  string
	turnActive atomic.Bool
}

// NewService creates a chat service around an empty workspace.
func NewService(deps Deps) *Service {
	streamer := deps.Streamer
	if streamer == nil {
		streamer = deps.Backend
	}

	return &Service{
		backend:  deps.Backend,
		streamer: streamer,
		repos:    deps.Repos,
		store:    deps.Store,
		openURL:  deps.OpenURL,
		cfg:      deps.Config,
		log:      deps.Logger,
		ws:       workspace.New(),
	}
}

// Workspace exposes the session state to the presentation layer. Read-only
// while a turn is active.
func (s *Service) Workspace() *workspace.Workspace { return s.ws }

// TurnActive reports whether a turn generator is currently running.
func (s *Service) TurnActive() bool { return s.turnActive.Load() }

// SubmitTurn validates preconditions and appends the user's message as a
// new turn. The caller must lock its input until the subsequent StreamTurn
// channel closes.
func (s *Service) SubmitTurn(repoFullName, userMessage string, history chat.History) (chat.History, error) {
	if s.turnActive.Load() {
		return history, ErrTurnActive
	}
	if repoFullName == "" {
		return history, ErrNoRepoSelected
	}

	return history.Append(chat.UserTurn(userMessage)), nil
}

// StreamTurn runs one turn and produces its lazy sequence of renderable
// states. The channel closes when the turn finishes; a fatal turn error is
// delivered as the final update's Err. There is no timeout beyond ctx.
func (s *Service) StreamTurn(ctx context.Context, history chat.History, snippetsText string) <-chan TurnUpdate {
	updates := make(chan TurnUpdate)

	go func() {
		defer close(updates)

		if !s.turnActive.CompareAndSwap(false, true) {
			updates <- TurnUpdate{History: history.Clone(), SnippetsText: snippetsText, Err: ErrTurnActive}
			return
		}
		defer s.turnActive.Store(false)

		s.runTurn(ctx, history, snippetsText, updates)
	}()

	return updates
}

func (s *Service) runTurn(ctx context.Context, history chat.History, snippetsText string, updates chan<- TurnUpdate) {
	// The caller keeps reading its own slice while the turn streams; work on
	// an owned copy so its turns are never written concurrently.
	history = history.Clone()

	emit := func() bool {
		select {
		case updates <- TurnUpdate{History: history.Clone(), SnippetsText: snippetsText}:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		s.log.Error().Err(err).Msg("turn failed")
		select {
		case updates <- TurnUpdate{History: history.Clone(), SnippetsText: snippetsText, Err: err}:
		case <-ctx.Done():
		}
	}

	if !emit() {
		return
	}

	// Search only when no snippets have been rendered yet: the block is
	// empty or has no line breaks.
	var snippets []chat.Snippet
	if !strings.Contains(strings.TrimSpace(snippetsText), "\n") {
		history.SetLastAssistant(statusSearching)
		if !emit() {
			return
		}

		s.log.Info().Str("query", history.LastUser()).Msg("fetching relevant snippets")
		found, err := s.backend.Search(ctx, history.LastUser(), searchFanout)
		if err != nil {
			fail(fmt.Errorf("search snippets: %w", err))
			return
		}
		snippets = found

		history.SetLastAssistant(statusFound)
		snippetsText = RenderSnippets(snippets)
		s.ws.SnippetsText = snippetsText
		if !emit() {
			return
		}
	}

	// A pending proposal plus a bare "ok"/"okay" confirms the PR instead
	// of continuing the conversation.
	if s.ws.Pending != nil && proposal.IsConfirmation(history.LastUser()) {
		s.confirmProposal(ctx, history, snippetsText, updates, emit, fail)
		return
	}

	// Assistant-only status row for the streamed response.
	history = history.Append(chat.Turn{Assistant: strPtr(statusFetching)})
	if !emit() {
		return
	}
	history.SetLastAssistant("")

	stream, err := s.streamer.StreamChat(ctx, history, snippets)
	if err != nil {
		fail(fmt.Errorf("open chat stream: %w", err))
		return
	}
	defer func() { _ = stream.Close() }()

	var agg assistant.Aggregator
	for {
		ev, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fail(fmt.Errorf("read chat stream: %w", err))
			return
		}

		if render, ok := agg.Apply(ev); ok {
			history.SetLastAssistant(render)
			if !emit() {
				return
			}
		}
	}

	name, rawArgs, err := agg.Finish()
	if err != nil {
		fail(err)
		return
	}

	if name == assistant.ActionCreatePR {
		// A parse failure leaves any prior pending proposal untouched.
		p, err := proposal.Parse(rawArgs)
		if err != nil {
			fail(err)
			return
		}

		history.SetLastAssistant(p.RenderSummary())
		s.ws.Pending = &p
		if !emit() {
			return
		}
	}

	s.persist(ctx, history)
}

func (s *Service) confirmProposal(
	ctx context.Context,
	history chat.History,
	snippetsText string,
	updates chan<- TurnUpdate,
	emit func() bool,
	fail func(error),
) {
	p := *s.ws.Pending

	history.SetLastAssistant(statusCreating)
	if !emit() {
		return
	}

	changes := make([]assistant.FileChangeRequest, len(p.Plan))
	for i, fc := range p.Plan {
		changes[i] = assistant.FileChangeRequest{Path: fc.Path, Instructions: fc.Instructions}
	}

	created, err := s.backend.CreatePR(ctx, changes, assistant.PullRequest{
		Title:      p.Title,
		Content:    p.Summary,
		BranchName: p.Branch,
	}, history)
	if err != nil {
		// The proposal stays pending so a later "ok" can retry.
		fail(fmt.Errorf("create pr: %w", err))
		return
	}

	s.log.Info().Str("url", created.HTMLURL).Msg("pull request created")
	history.SetLastAssistant("✅ PR created at " + created.HTMLURL)
	s.ws.Pending = nil
	if !emit() {
		return
	}

	s.persist(ctx, history)
}

// SelectRepo persists the repository choice, resolves its installation,
// resets the workspace, and fetches the file listing. Runs between turns.
func (s *Service) SelectRepo(ctx context.Context, repoFullName string) error {
	if s.turnActive.Load() {
		return ErrTurnActive
	}

	s.cfg.GitHub.RepoFullName = repoFullName

	installationID, err := s.backend.InstallationID(ctx, repoFullName)
	if err != nil {
		// No installation: point the user at the install page and clear
		// the selection so the next launch doesn't stick on a repo the
		// app cannot access.
		if s.openURL != nil {
			if openErr := s.openURL(ctx, installAppURL); openErr != nil {
				s.log.Warn().Err(openErr).Msg("open app install page")
			}
		}

		s.cfg.GitHub.RepoFullName = ""
		s.cfg.GitHub.InstallationID = 0
		if saveErr := s.cfg.Save(); saveErr != nil {
			s.log.Warn().Err(saveErr).Msg("save config after failed installation lookup")
		}

		return fmt.Errorf("resolve installation for %q: %w", repoFullName, err)
	}

	s.cfg.GitHub.InstallationID = installationID
	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	s.ws.Reset(repoFullName)
	s.sessionID = ""

	listing, err := s.repos.ListFiles(ctx, repoFullName)
	if err != nil {
		return fmt.Errorf("list files for %q: %w", repoFullName, err)
	}
	s.ws.SetListing(listing)

	if err := s.autoSelect(ctx); err != nil {
		return err
	}

	return nil
}

// autoSelect applies the configured auto_select globs to the fresh listing.
func (s *Service) autoSelect(ctx context.Context) error {
	var paths []string
	for _, pattern := range s.cfg.Files.AutoSelect {
		matches, err := s.ws.ExpandGlob(pattern)
		if err != nil {
			return fmt.Errorf("auto-select %q: %w", pattern, err)
		}
		paths = append(paths, matches...)
	}

	if len(paths) == 0 {
		return nil
	}
	return s.SelectFiles(ctx, dedupe(paths))
}

// SelectFiles replaces the pinned file selection, fetching and caching
// previews for newly selected files, and rebuilds the snippets block.
func (s *Service) SelectFiles(ctx context.Context, paths []string) error {
	if s.turnActive.Load() {
		return ErrTurnActive
	}
	if s.ws.Repo() == "" {
		return ErrNoRepoSelected
	}

	for _, path := range paths {
		if s.ws.HasPreview(path) {
			continue
		}

		content, err := s.repos.FileContent(ctx, s.ws.Repo(), path)
		if err != nil {
			return fmt.Errorf("fetch %q: %w", path, err)
		}
		s.ws.CachePreview(path, content)
	}

	s.ws.SetSelected(paths)
	s.ws.SnippetsText = s.ws.BuildSnippetsText()
	return nil
}

// SelectGlob expands a glob against the cached listing and adds the matches
// to the selection.
func (s *Service) SelectGlob(ctx context.Context, pattern string) ([]string, error) {
	matches, err := s.ws.ExpandGlob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	merged := dedupe(append(append([]string{}, s.ws.Selected()...), matches...))
	if err := s.SelectFiles(ctx, merged); err != nil {
		return nil, err
	}
	return matches, nil
}

// ClearConversation drops the transcript and snippets block but keeps the
// repository, file selection, and preview cache.
func (s *Service) ClearConversation() (chat.History, string) {
	s.ws.SnippetsText = ""
	s.sessionID = ""
	return chat.History{}, ""
}

// persist saves the transcript when a store is configured. Failures are
// logged, not fatal: losing a saved transcript must not kill the turn.
func (s *Service) persist(ctx context.Context, history chat.History) {
	if s.store == nil || s.ws.Repo() == "" {
		return
	}

	if s.sessionID == "" {
		s.sessionID = randid.Generate(8)
	}

	now := time.Now()
	err := s.store.Save(ctx, chat.Session{
		ID:           s.sessionID,
		RepoFullName: s.ws.Repo(),
		Turns:        history.Clone(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("session", s.sessionID).Msg("persist chat session")
	}
}

// RenderSnippets renders the snippets markdown block: the header, then each
// snippet's denotation and a fenced preview of its first lines with
// backticks escaped.
func RenderSnippets(snippets []chat.Snippet) string {
	parts := make([]string, len(snippets))
	for i, sn := range snippets {
		preview := workspace.EscapeBackticks(sn.Preview(snippetPreviewLines))
		parts[i] = fmt.Sprintf("%s\n```\n%s\n```", sn.Denotation, preview)
	}
	return workspace.SnippetsHeader + "\n" + strings.Join(parts, "\n")
}

func strPtr(s string) *string { return &s }

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
