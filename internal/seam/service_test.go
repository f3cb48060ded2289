package seam

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/core/config"
	"github.com/colonyops/seam/internal/core/proposal"
)

type scriptedStream struct {
	events []assistant.StreamEvent
	pos    int
	closed bool
}

func (s *scriptedStream) Recv() (assistant.StreamEvent, error) {
	if s.pos >= len(s.events) {
		return assistant.StreamEvent{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type stubBackend struct {
	searchQueries []string
	searchK       int
	snippets      []chat.Snippet
	searchErr     error

	stream    *scriptedStream
	streamErr error

	createdChanges []assistant.FileChangeRequest
	createdPR      assistant.PullRequest
	created        assistant.CreatedPR
	createErr      error

	installationID  int64
	installationErr error
}

func (b *stubBackend) Search(_ context.Context, query string, k int) ([]chat.Snippet, error) {
	b.searchQueries = append(b.searchQueries, query)
	b.searchK = k
	return b.snippets, b.searchErr
}

func (b *stubBackend) StreamChat(_ context.Context, _ chat.History, _ []chat.Snippet) (assistant.Stream, error) {
	if b.streamErr != nil {
		return nil, b.streamErr
	}
	if b.stream == nil {
		b.stream = &scriptedStream{}
	}
	return b.stream, nil
}

func (b *stubBackend) CreatePR(_ context.Context, changes []assistant.FileChangeRequest, pr assistant.PullRequest, _ chat.History) (assistant.CreatedPR, error) {
	b.createdChanges = changes
	b.createdPR = pr
	return b.created, b.createErr
}

func (b *stubBackend) InstallationID(_ context.Context, _ string) (int64, error) {
	return b.installationID, b.installationErr
}

type stubRepos struct {
	files    []string
	contents map[string]string
	fetched  []string
}

func (r *stubRepos) ListFiles(_ context.Context, _ string) ([]string, error) {
	return r.files, nil
}

func (r *stubRepos) FileContent(_ context.Context, _ string, path string) (string, error) {
	r.fetched = append(r.fetched, path)
	content, ok := r.contents[path]
	if !ok {
		return "", errors.New("no such file")
	}
	return content, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	cfg.SetPath(filepath.Join(t.TempDir(), "config.yml"))
	return cfg
}

func newTestService(t *testing.T, backend *stubBackend, repos *stubRepos) *Service {
	t.Helper()

	if repos == nil {
		repos = &stubRepos{}
	}
	return NewService(Deps{
		Backend: backend,
		Repos:   repos,
		Config:  testConfig(t),
		Logger:  zerolog.Nop(),
	})
}

func collect(t *testing.T, updates <-chan TurnUpdate) []TurnUpdate {
	t.Helper()

	var all []TurnUpdate
	for u := range updates {
		all = append(all, u)
	}
	require.NotEmpty(t, all)
	return all
}

func lastAssistant(t *testing.T, h chat.History) string {
	t.Helper()

	require.NotEmpty(t, h)
	require.NotNil(t, h[len(h)-1].Assistant)
	return *h[len(h)-1].Assistant
}

func TestSubmitTurn(t *testing.T) {
	svc := newTestService(t, &stubBackend{}, nil)

	t.Run("requires a repository", func(t *testing.T) {
		_, err := svc.SubmitTurn("", "hello", nil)
		assert.ErrorIs(t, err, ErrNoRepoSelected)
	})

	t.Run("appends the user turn", func(t *testing.T) {
		history, err := svc.SubmitTurn("owner/repo", "hello", nil)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "hello", *history[0].User)
		assert.Nil(t, history[0].Assistant)
	})
}

func TestStreamTurn_SearchesWhenNoSnippets(t *testing.T) {
	backend := &stubBackend{
		snippets: []chat.Snippet{
			{Denotation: "pkg/a.go:1:3", Content: "package a\n\nvar X = 1\nvar Y = 2"},
			{Denotation: "pkg/b.go:1:2", Content: "package b"},
		},
		stream: &scriptedStream{events: []assistant.StreamEvent{{Content: "done"}}},
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "where is X set?", nil)
	require.NoError(t, err)

	all := collect(t, svc.StreamTurn(context.Background(), history, ""))

	require.Equal(t, []string{"where is X set?"}, backend.searchQueries, "exactly one search")
	assert.Equal(t, searchFanout, backend.searchK)

	var statuses []string
	for _, u := range all {
		require.NoError(t, u.Err)
		statuses = append(statuses, lastAssistant(t, u.History))
	}
	assert.Contains(t, statuses, statusSearching)
	assert.Contains(t, statuses, statusFound)

	final := all[len(all)-1]
	assert.Contains(t, final.SnippetsText, "### Relevant snippets:")
	assert.Contains(t, final.SnippetsText, "pkg/a.go:1:3")
	assert.Contains(t, final.SnippetsText, "pkg/b.go:1:2")
	assert.Equal(t, final.SnippetsText, svc.Workspace().SnippetsText)
}

func TestStreamTurn_SkipsSearchWhenSnippetsPresent(t *testing.T) {
	backend := &stubBackend{
		stream: &scriptedStream{events: []assistant.StreamEvent{{Content: "done"}}},
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "next question", nil)
	require.NoError(t, err)

	snippets := "### Relevant snippets:\npkg/a.go:1:3\n```\npackage a\n```"
	collect(t, svc.StreamTurn(context.Background(), history, snippets))

	assert.Empty(t, backend.searchQueries, "search is not repeated once snippets are rendered")
}

func TestStreamTurn_ContentRendersMonotonically(t *testing.T) {
	backend := &stubBackend{
		snippets: []chat.Snippet{{Denotation: "a.go:1:1", Content: "x"}},
		stream: &scriptedStream{events: []assistant.StreamEvent{
			{Content: "Hel"},
			{Content: "lo"},
		}},
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "hi", nil)
	require.NoError(t, err)

	all := collect(t, svc.StreamTurn(context.Background(), history, ""))

	var renders []string
	for _, u := range all {
		require.NoError(t, u.Err)
		renders = append(renders, lastAssistant(t, u.History))
	}
	assert.Contains(t, renders, "Hel")
	assert.Equal(t, "Hello", renders[len(renders)-1])
	assert.True(t, backend.stream.closed)
}

func TestStreamTurn_CallerHistoryStaysUntouched(t *testing.T) {
	backend := &stubBackend{
		snippets: []chat.Snippet{{Denotation: "a.go:1:1", Content: "x"}},
		stream:   &scriptedStream{events: []assistant.StreamEvent{{Content: "done"}}},
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "hi", nil)
	require.NoError(t, err)

	updates := svc.StreamTurn(context.Background(), history, "")

	// A host UI keeps rendering its own slice while the turn streams, e.g.
	// on a window resize. The turn works on its own copy.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for range 1000 {
			_ = history[len(history)-1].Assistant
		}
	}()

	all := collect(t, updates)
	<-readerDone

	assert.Nil(t, history[len(history)-1].Assistant, "the caller's slice is never written")
	assert.Equal(t, "done", lastAssistant(t, all[len(all)-1].History))
}

func TestStreamTurn_SearchFailureEndsTurn(t *testing.T) {
	backend := &stubBackend{searchErr: errors.New("backend down")}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "where is X set?", nil)
	require.NoError(t, err)

	all := collect(t, svc.StreamTurn(context.Background(), history, ""))

	final := all[len(all)-1]
	require.ErrorIs(t, final.Err, backend.searchErr)
	for _, u := range all[:len(all)-1] {
		require.NoError(t, u.Err, "only the final update carries the error")
	}
	assert.Nil(t, backend.stream, "the chat stream is never opened")
}

func TestStreamTurn_StreamOpenFailureEndsTurn(t *testing.T) {
	backend := &stubBackend{
		snippets:  []chat.Snippet{{Denotation: "a.go:1:1", Content: "x"}},
		streamErr: errors.New("bad gateway"),
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "hi", nil)
	require.NoError(t, err)

	all := collect(t, svc.StreamTurn(context.Background(), history, ""))

	final := all[len(all)-1]
	require.ErrorIs(t, final.Err, backend.streamErr)
	for _, u := range all[:len(all)-1] {
		require.NoError(t, u.Err, "only the final update carries the error")
	}
}

func TestStreamTurn_FunctionCallBecomesProposal(t *testing.T) {
	args := `{"title":"Add X support","summary":"Adds X.","plan":[{"file_path":"main.go","instructions":"wire X"}]}`
	backend := &stubBackend{
		snippets: []chat.Snippet{{Denotation: "a.go:1:1", Content: "x"}},
		stream: &scriptedStream{events: []assistant.StreamEvent{
			{FunctionCall: &assistant.FunctionCallDelta{Name: "create_pr", Arguments: args[:20]}},
			{FunctionCall: &assistant.FunctionCallDelta{Arguments: args[20:]}},
		}},
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "please add X", nil)
	require.NoError(t, err)

	all := collect(t, svc.StreamTurn(context.Background(), history, ""))
	for _, u := range all {
		require.NoError(t, u.Err)
	}

	p := svc.Workspace().Pending
	require.NotNil(t, p)
	assert.Equal(t, "Add X support", p.Title)
	assert.Equal(t, "add_x_support", p.Branch)
	require.Len(t, p.Plan, 1)
	assert.Equal(t, "main.go", p.Plan[0].Path)

	final := lastAssistant(t, all[len(all)-1].History)
	assert.Contains(t, final, "💡 I'll create the following PR:")
	assert.Contains(t, final, "**Add X support**")
	assert.Contains(t, final, "* `main.go`: wire X")
}

func TestStreamTurn_Confirmation(t *testing.T) {
	for _, msg := range []string{"OK", " ok ", "Okay"} {
		t.Run(msg, func(t *testing.T) {
			backend := &stubBackend{
				created: assistant.CreatedPR{HTMLURL: "https://github.com/owner/repo/pull/7"},
			}
			svc := newTestService(t, backend, nil)
			svc.Workspace().Pending = &proposal.Proposal{
				Title:   "Add X support",
				Summary: "Adds X.",
				Plan:    []proposal.FileChange{{Path: "main.go", Instructions: "wire X"}},
				Branch:  "add_x_support",
			}

			history, err := svc.SubmitTurn("owner/repo", msg, nil)
			require.NoError(t, err)

			snippets := "### Relevant snippets:\na.go:1:1\n```\nx\n```"
			all := collect(t, svc.StreamTurn(context.Background(), history, snippets))

			var statuses []string
			for _, u := range all {
				require.NoError(t, u.Err)
				statuses = append(statuses, lastAssistant(t, u.History))
			}
			assert.Contains(t, statuses, statusCreating)
			assert.Equal(t, "✅ PR created at https://github.com/owner/repo/pull/7", statuses[len(statuses)-1])

			require.Len(t, backend.createdChanges, 1)
			assert.Equal(t, "main.go", backend.createdChanges[0].Path)
			assert.Equal(t, "wire X", backend.createdChanges[0].Instructions)
			assert.Equal(t, assistant.PullRequest{
				Title:      "Add X support",
				Content:    "Adds X.",
				BranchName: "add_x_support",
			}, backend.createdPR)

			assert.Nil(t, svc.Workspace().Pending, "the proposal is consumed on success")
		})
	}
}

func TestStreamTurn_NotAConfirmation(t *testing.T) {
	backend := &stubBackend{
		stream: &scriptedStream{events: []assistant.StreamEvent{{Content: "sure"}}},
	}
	svc := newTestService(t, backend, nil)
	svc.Workspace().Pending = &proposal.Proposal{Title: "t", Summary: "s"}

	history, err := svc.SubmitTurn("owner/repo", "ok please wait", nil)
	require.NoError(t, err)

	snippets := "### Relevant snippets:\na.go:1:1\n```\nx\n```"
	collect(t, svc.StreamTurn(context.Background(), history, snippets))

	assert.Empty(t, backend.createdChanges)
	assert.NotNil(t, svc.Workspace().Pending, "an ordinary message keeps the proposal pending")
}

func TestStreamTurn_CreatePRFailureKeepsProposal(t *testing.T) {
	backend := &stubBackend{createErr: errors.New("backend down")}
	svc := newTestService(t, backend, nil)
	pending := &proposal.Proposal{Title: "t", Summary: "s", Branch: "t"}
	svc.Workspace().Pending = pending

	history, err := svc.SubmitTurn("owner/repo", "ok", nil)
	require.NoError(t, err)

	snippets := "### Relevant snippets:\na.go:1:1\n```\nx\n```"
	all := collect(t, svc.StreamTurn(context.Background(), history, snippets))

	final := all[len(all)-1]
	require.Error(t, final.Err)
	assert.Same(t, pending, svc.Workspace().Pending, "a failed creation can be retried with another ok")
}

func TestStreamTurn_MalformedArguments(t *testing.T) {
	backend := &stubBackend{
		stream: &scriptedStream{events: []assistant.StreamEvent{
			{FunctionCall: &assistant.FunctionCallDelta{Name: "create_pr", Arguments: `{"title":`}},
		}},
	}
	svc := newTestService(t, backend, nil)
	prior := &proposal.Proposal{Title: "old", Summary: "old"}
	svc.Workspace().Pending = prior

	history, err := svc.SubmitTurn("owner/repo", "try again", nil)
	require.NoError(t, err)

	snippets := "### Relevant snippets:\na.go:1:1\n```\nx\n```"
	all := collect(t, svc.StreamTurn(context.Background(), history, snippets))

	final := all[len(all)-1]
	require.ErrorIs(t, final.Err, assistant.ErrMalformedArguments)
	assert.Same(t, prior, svc.Workspace().Pending, "a failed parse leaves the prior proposal untouched")
}

func TestStreamTurn_MissingPlanFailsValidation(t *testing.T) {
	backend := &stubBackend{
		stream: &scriptedStream{events: []assistant.StreamEvent{
			{FunctionCall: &assistant.FunctionCallDelta{Name: "create_pr", Arguments: `{"title":"t","summary":"s"}`}},
		}},
	}
	svc := newTestService(t, backend, nil)

	history, err := svc.SubmitTurn("owner/repo", "go", nil)
	require.NoError(t, err)

	snippets := "### Relevant snippets:\na.go:1:1\n```\nx\n```"
	all := collect(t, svc.StreamTurn(context.Background(), history, snippets))

	final := all[len(all)-1]
	require.ErrorIs(t, final.Err, proposal.ErrMissingField)
	assert.Nil(t, svc.Workspace().Pending)
}

func TestStreamTurn_RejectsConcurrentTurns(t *testing.T) {
	svc := newTestService(t, &stubBackend{}, nil)
	svc.turnActive.Store(true)

	all := collect(t, svc.StreamTurn(context.Background(), nil, ""))
	require.Len(t, all, 1)
	assert.ErrorIs(t, all[0].Err, ErrTurnActive)
}

func TestSelectRepo(t *testing.T) {
	backend := &stubBackend{installationID: 42}
	repos := &stubRepos{files: []string{"main.go", "pkg/a.go"}}
	svc := newTestService(t, backend, repos)

	require.NoError(t, svc.SelectRepo(context.Background(), "owner/repo"))

	assert.Equal(t, "owner/repo", svc.Workspace().Repo())
	assert.Equal(t, []string{"main.go", "pkg/a.go"}, svc.Workspace().Listing())
	assert.Equal(t, "owner/repo", svc.cfg.GitHub.RepoFullName)
	assert.Equal(t, int64(42), svc.cfg.GitHub.InstallationID)

	reloaded, err := config.Load(svc.cfg.Path(), svc.cfg.DataDir)
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", reloaded.GitHub.RepoFullName, "the selection survives a restart")
}

func TestSelectRepo_NoInstallation(t *testing.T) {
	backend := &stubBackend{installationErr: errors.New("not installed")}
	svc := newTestService(t, backend, nil)

	var opened string
	svc.openURL = func(_ context.Context, url string) error {
		opened = url
		return nil
	}

	err := svc.SelectRepo(context.Background(), "owner/repo")
	require.Error(t, err)
	assert.Equal(t, installAppURL, opened)
	assert.Empty(t, svc.cfg.GitHub.RepoFullName, "a repo the app cannot access is not persisted")
}

func TestSelectRepo_AutoSelect(t *testing.T) {
	backend := &stubBackend{installationID: 1}
	repos := &stubRepos{
		files: []string{"main.go", "pkg/a.go", "README.md"},
		contents: map[string]string{
			"main.go":  "package main",
			"pkg/a.go": "package pkg",
		},
	}
	svc := newTestService(t, backend, repos)
	svc.cfg.Files.AutoSelect = []string{"**/*.go"}

	require.NoError(t, svc.SelectRepo(context.Background(), "owner/repo"))

	assert.ElementsMatch(t, []string{"main.go", "pkg/a.go"}, svc.Workspace().Selected())
	assert.Contains(t, svc.Workspace().SnippetsText, "main.go:0:1")
}

func TestSelectFiles(t *testing.T) {
	repos := &stubRepos{contents: map[string]string{
		"main.go": "package main\n\nfunc main() {}\nvar x = 1\n",
	}}
	svc := newTestService(t, &stubBackend{installationID: 1}, repos)
	require.NoError(t, svc.SelectRepo(context.Background(), "owner/repo"))

	require.NoError(t, svc.SelectFiles(context.Background(), []string{"main.go"}))
	assert.Equal(t, []string{"main.go"}, svc.Workspace().Selected())
	assert.Contains(t, svc.Workspace().SnippetsText, "### Relevant snippets:")
	assert.Contains(t, svc.Workspace().SnippetsText, "main.go:0:5")

	// Re-selecting is served from the preview cache.
	require.NoError(t, svc.SelectFiles(context.Background(), []string{"main.go"}))
	assert.Equal(t, []string{"main.go"}, repos.fetched)
}

func TestSelectGlob(t *testing.T) {
	repos := &stubRepos{
		files: []string{"a.go", "b.go", "c.txt"},
		contents: map[string]string{
			"a.go": "package a",
			"b.go": "package b",
		},
	}
	svc := newTestService(t, &stubBackend{installationID: 1}, repos)
	require.NoError(t, svc.SelectRepo(context.Background(), "owner/repo"))

	matches, err := svc.SelectGlob(context.Background(), "*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, matches)
	assert.Equal(t, []string{"a.go", "b.go"}, svc.Workspace().Selected())

	_, err = svc.SelectGlob(context.Background(), "[bad")
	assert.Error(t, err)
}

func TestClearConversation(t *testing.T) {
	repos := &stubRepos{
		files:    []string{"a.go"},
		contents: map[string]string{"a.go": "package a"},
	}
	svc := newTestService(t, &stubBackend{installationID: 1}, repos)
	require.NoError(t, svc.SelectRepo(context.Background(), "owner/repo"))
	require.NoError(t, svc.SelectFiles(context.Background(), []string{"a.go"}))
	svc.ws.SnippetsText = "### Relevant snippets:\nsomething"

	history, snippets := svc.ClearConversation()
	assert.Empty(t, history)
	assert.Empty(t, snippets)
	assert.Empty(t, svc.Workspace().SnippetsText)
	assert.Equal(t, "owner/repo", svc.Workspace().Repo(), "the repo selection survives a clear")
	assert.Equal(t, []string{"a.go"}, svc.Workspace().Selected(), "pinned files survive a clear")
}

func TestRenderSnippets(t *testing.T) {
	out := RenderSnippets([]chat.Snippet{
		{Denotation: "a.go:1:2", Content: "line1\nline2\nline3\nline4\nline5\nline6"},
		{Denotation: "b.go:1:1", Content: "has `ticks`"},
	})

	assert.True(t, len(out) > 0)
	assert.Contains(t, out, "### Relevant snippets:\na.go:1:2\n```\nline1\nline2\nline3\nline4\nline5\n```")
	assert.Contains(t, out, "b.go:1:1\n```\nhas \\`ticks\\`\n```")
	assert.NotContains(t, out, "line6", "previews are capped")
}
