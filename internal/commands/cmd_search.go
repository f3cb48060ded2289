package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/seam/internal/core/styles"
	"github.com/colonyops/seam/internal/seam"
)

type SearchCmd struct {
	flags *Flags
	app   *seam.App

	// flags
	results int
	plain   bool
}

// NewSearchCmd creates a new search command
func NewSearchCmd(flags *Flags, app *seam.App) *SearchCmd {
	return &SearchCmd{flags: flags, app: app}
}

// Register adds the search command to the application
func (cmd *SearchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "search",
		Usage:     "Search the selected repository for relevant snippets",
		UsageText: "seam search [options] <query>",
		Description: `Runs a one-shot snippet search against the assistant backend and prints
the results as rendered markdown. Requires a selected repository.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "n",
				Usage:       "number of results",
				Value:       3,
				Destination: &cmd.results,
			},
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "print raw markdown without terminal rendering",
				Destination: &cmd.plain,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SearchCmd) run(ctx context.Context, c *cli.Command) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: seam search <query>")
	}

	if cmd.flags.Config.GitHub.RepoFullName == "" {
		return fmt.Errorf("no repository selected, run 'seam' and pick one first")
	}

	snippets, err := cmd.app.Backend.Search(ctx, query, cmd.results)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := c.Root().Writer

	if len(snippets) == 0 {
		_, _ = fmt.Fprintln(out, "No snippets found")
		return nil
	}

	markdown := seam.RenderSnippets(snippets)

	// Piped output gets raw markdown.
	if cmd.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		_, _ = fmt.Fprintln(out, markdown)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return fmt.Errorf("render snippets: %w", err)
	}

	_, _ = fmt.Fprint(out, rendered)
	return nil
}
