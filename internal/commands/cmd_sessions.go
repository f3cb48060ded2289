package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/seam"
	"github.com/colonyops/seam/pkg/iojson"
)

type SessionsCmd struct {
	flags *Flags
	app   *seam.App

	// flags
	jsonOutput bool
	yes        bool
}

// NewSessionsCmd creates a new sessions command
func NewSessionsCmd(flags *Flags, app *seam.App) *SessionsCmd {
	return &SessionsCmd{flags: flags, app: app}
}

// Register adds the sessions command to the application
func (cmd *SessionsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "sessions",
		Usage:       "Manage saved chat sessions",
		UsageText:   "seam sessions <command>",
		Description: "Lists, shows, and deletes chat transcripts saved by the TUI.",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List saved sessions",
				UsageText: "seam sessions ls [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runLs,
			},
			{
				Name:      "show",
				Usage:     "Print a session transcript",
				UsageText: "seam sessions show <id>",
				Action:    cmd.runShow,
			},
			{
				Name:      "rm",
				Usage:     "Delete a session",
				UsageText: "seam sessions rm [--yes] <id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "yes",
						Aliases:     []string{"y"},
						Usage:       "skip the confirmation prompt",
						Destination: &cmd.yes,
					},
				},
				Action: cmd.runRm,
			},
		},
	})

	return app
}

func (cmd *SessionsCmd) runLs(ctx context.Context, c *cli.Command) error {
	sessions, err := cmd.app.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No sessions found\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, s := range sessions {
			if err := iojson.WriteLine(out, s); err != nil {
				return fmt.Errorf("encode session: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREPO\tUPDATED")

	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.RepoFullName, s.UpdatedAt.Format(time.RFC3339))
	}

	return w.Flush()
}

func (cmd *SessionsCmd) runShow(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: seam sessions show <id>")
	}

	session, err := cmd.app.Sessions.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get session %q: %w", id, err)
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "# %s (%s)\n\n", session.RepoFullName, session.ID)
	_, _ = fmt.Fprint(out, renderTranscript(session.Turns))
	return nil
}

func (cmd *SessionsCmd) runRm(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: seam sessions rm <id>")
	}

	if !cmd.yes {
		var confirmed bool
		err := huh.NewConfirm().
			Title("Delete session?").
			Description(id).
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if err := cmd.app.Sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "Deleted %s\n", id)
	return nil
}

// renderTranscript flattens a history into readable markdown, one labeled
// block per message.
func renderTranscript(turns chat.History) string {
	var b strings.Builder
	for _, t := range turns {
		if t.User != nil {
			b.WriteString("**You:**\n\n")
			b.WriteString(*t.User)
			b.WriteString("\n\n")
		}
		if t.Assistant != nil && *t.Assistant != "" {
			b.WriteString("**Assistant:**\n\n")
			b.WriteString(*t.Assistant)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}
