package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/chat"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body struct {
			Query    string `json:"query"`
			NResults int    `json:"n_results"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "auth middleware", body.Query)
		assert.Equal(t, 3, body.NResults)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"snippets": []chat.Snippet{{Denotation: "auth.go:1-20", Content: "package auth"}},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, "secret")

	snippets, err := client.Search(context.Background(), "auth middleware", 3)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "auth.go:1-20", snippets[0].Denotation)
}

func TestClient_Search_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "index unavailable")
}

func TestClient_StreamChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/stream", r.URL.Path)

		var body struct {
			Messages []chat.Turn    `json:"messages"`
			Snippets []chat.Snippet `json:"snippets"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 1)

		fmt.Fprintln(w, `{"content":"Hel"}`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"content":"lo"}`)
		fmt.Fprintln(w, `{"function_call":{"name":"create_pr","arguments":"{}"}}`)
	}))
	defer srv.Close()

	client := New(srv.URL, "")

	stream, err := client.StreamChat(context.Background(), chat.History{chat.UserTurn("hi")}, nil)
	require.NoError(t, err)
	defer func() { _ = stream.Close() }()

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hel", ev.Content)

	ev, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "lo", ev.Content, "blank lines are skipped")

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.NotNil(t, ev.FunctionCall)
	assert.Equal(t, "create_pr", ev.FunctionCall.Name)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_StreamChat_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").StreamChat(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_CreatePR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create_pr", r.URL.Path)

		var body struct {
			FileChangeRequests []assistant.FileChangeRequest `json:"file_change_requests"`
			PullRequest        assistant.PullRequest         `json:"pull_request"`
			Messages           []chat.Turn                   `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.FileChangeRequests, 1)
		assert.Equal(t, "main.go", body.FileChangeRequests[0].Path)
		assert.Equal(t, "fix_crash", body.PullRequest.BranchName)

		_ = json.NewEncoder(w).Encode(assistant.CreatedPR{HTMLURL: "https://github.com/o/r/pull/7"})
	}))
	defer srv.Close()

	client := New(srv.URL, "")

	created, err := client.CreatePR(context.Background(),
		[]assistant.FileChangeRequest{{Path: "main.go", Instructions: "guard nil"}},
		assistant.PullRequest{Title: "Fix crash", Content: "Guards the nil deref.", BranchName: "fix_crash"},
		chat.History{chat.UserTurn("fix the crash")},
	)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/o/r/pull/7", created.HTMLURL)
}

func TestClient_InstallationID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/installation_id", r.URL.Path)
			assert.Equal(t, "owner/repo", r.URL.Query().Get("repo_full_name"))
			_ = json.NewEncoder(w).Encode(map[string]int64{"installation_id": 99})
		}))
		defer srv.Close()

		id, err := New(srv.URL, "").InstallationID(context.Background(), "owner/repo")
		require.NoError(t, err)
		assert.Equal(t, int64(99), id)
	})

	t.Run("missing installation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]int64{"installation_id": 0})
		}))
		defer srv.Close()

		_, err := New(srv.URL, "").InstallationID(context.Background(), "owner/repo")
		assert.Error(t, err)
	})
}

func TestBuildMessages(t *testing.T) {
	h := chat.History{chat.UserTurn("hello")}
	h.SetLastAssistant("hi")
	h = h.Append(chat.UserTurn("fix the bug"))

	msgs := buildMessages(h, []chat.Snippet{{Denotation: "a.go:1-3", Content: "package a"}})

	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "a.go:1-3")
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, "fix the bug", msgs[3].Content)
}
