package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/seam/internal/seam"
	"github.com/colonyops/seam/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	app   *seam.App
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, app *seam.App) *TuiCmd {
	return &TuiCmd{flags: flags, app: app}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(_ context.Context, _ *cli.Command) error {
	m := tui.New(tui.Deps{App: cmd.app})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}
