package proposal

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("full arguments", func(t *testing.T) {
		raw := json.RawMessage(`{
			"title": "Add tests",
			"summary": "Covers the parser.",
			"plan": [{"file_path": "parser.go", "instructions": "add table tests"}],
			"branch": "add-tests"
		}`)

		p, err := Parse(raw)
		require.NoError(t, err)

		assert.Equal(t, "Add tests", p.Title)
		assert.Equal(t, "Covers the parser.", p.Summary)
		assert.Equal(t, "add-tests", p.Branch)
		require.Len(t, p.Plan, 1)
		assert.Equal(t, "parser.go", p.Plan[0].Path)
		assert.Equal(t, "add table tests", p.Plan[0].Instructions)
	})

	t.Run("branch derived when absent", func(t *testing.T) {
		p, err := Parse(json.RawMessage(`{"title":"X","summary":"S","plan":[]}`))
		require.NoError(t, err)
		assert.Equal(t, "x", p.Branch)
		assert.Empty(t, p.Plan, "an empty plan array is valid")
	})

	t.Run("missing required fields", func(t *testing.T) {
		tests := []struct {
			name string
			raw  string
		}{
			{"no title", `{"summary":"S","plan":[]}`},
			{"no summary", `{"title":"X","plan":[]}`},
			{"no plan", `{"title":"X","summary":"S"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Parse(json.RawMessage(tt.raw))
				assert.ErrorIs(t, err, ErrMissingField)
			})
		}
	})

	t.Run("non-object arguments", func(t *testing.T) {
		_, err := Parse(json.RawMessage(`"not an object"`))
		assert.Error(t, err)
	})
}

func TestDeriveBranch(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"X", "x"},
		{"Fix login-page redirect", "fix_login_page_redirect"},
		{strings.Repeat("long title ", 10), strings.ReplaceAll(strings.Repeat("long title ", 10), " ", "_")[:50]},
		{strings.Repeat("é", 60), strings.Repeat("é", 50)},
	}
	for _, tt := range tests {
		got := DeriveBranch(tt.title)
		assert.Equal(t, tt.want, got)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), 50)
		assert.True(t, utf8.ValidString(got), "truncation must not split a rune")
	}
}

func TestIsConfirmation(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"ok", true},
		{"okay", true},
		{"OK", true},
		{"  Okay  ", true},
		{"\tOK \n", true},
		{"ok please wait", false},
		{"no", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsConfirmation(tt.msg), "message %q", tt.msg)
	}
}

func TestRenderSummary(t *testing.T) {
	p := Proposal{
		Title:   "Add tests",
		Summary: "Covers the parser.",
		Plan: []FileChange{
			{Path: "parser.go", Instructions: "add table tests"},
			{Path: "lexer.go", Instructions: "cover EOF handling"},
		},
		Branch: "add_tests",
	}

	got := p.RenderSummary()

	assert.Contains(t, got, "**Add tests**")
	assert.Contains(t, got, "Covers the parser.")
	assert.Contains(t, got, "* `parser.go`: add table tests")
	assert.Contains(t, got, "* `lexer.go`: cover EOF handling")
	assert.Contains(t, got, `Reply with "ok" to create the PR`)
}
