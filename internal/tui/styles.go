// Package tui implements the Bubble Tea chat interface for seam.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/seam/internal/core/styles"
)

func titleStyle() lipgloss.Style {
	return styles.TitleStyle.Padding(0, 1)
}

func statusLine(s string) string {
	return styles.StatusStyle.Render(s)
}

func errorLine(s string) string {
	return styles.ErrorStyle.Render(s)
}
