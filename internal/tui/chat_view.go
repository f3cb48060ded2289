package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/core/styles"
)

// newMarkdownRenderer builds a glamour renderer themed from the active
// palette. A nil renderer means raw markdown is shown instead.
func newMarkdownRenderer(wrap int) *glamour.TermRenderer {
	if wrap < 10 {
		wrap = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

func renderMarkdown(r *glamour.TermRenderer, markdown string) string {
	if r == nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// renderTranscript renders the conversation for the viewport: a labeled
// block per message, assistant markdown rendered with glamour.
func renderTranscript(r *glamour.TermRenderer, history chat.History) string {
	var b strings.Builder

	for _, t := range history {
		if t.User != nil {
			b.WriteString(styles.UserLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(*t.User)
			b.WriteString("\n\n")
		}
		if t.Assistant != nil && *t.Assistant != "" {
			b.WriteString(styles.BotLabelStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(renderMarkdown(r, *t.Assistant))
			b.WriteString("\n")
		}
	}

	return b.String()
}
