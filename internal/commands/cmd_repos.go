package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/seam/internal/seam"
	"github.com/colonyops/seam/pkg/iojson"
)

type ReposCmd struct {
	flags *Flags
	app   *seam.App

	// flags
	jsonOutput bool
}

// NewReposCmd creates a new repos command
func NewReposCmd(flags *Flags, app *seam.App) *ReposCmd {
	return &ReposCmd{flags: flags, app: app}
}

// Register adds the repos command to the application
func (cmd *ReposCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "repos",
		Usage:       "List repositories visible to your GitHub token",
		UsageText:   "seam repos [--json]",
		Description: "Displays the repositories you can start a chat against. The current selection is marked.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ReposCmd) run(ctx context.Context, c *cli.Command) error {
	repos, err := cmd.app.GitHub.ListRepos(ctx)
	if err != nil {
		return fmt.Errorf("list repos: %w", err)
	}

	if len(repos) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No repositories found\n")
		}
		return nil
	}

	out := c.Root().Writer
	selected := cmd.flags.Config.GitHub.RepoFullName

	if cmd.jsonOutput {
		for _, r := range repos {
			info := repoInfo{
				FullName: r.FullName,
				Private:  r.Private,
				Selected: r.FullName == selected,
			}
			if err := iojson.WriteLine(out, info); err != nil {
				return fmt.Errorf("encode repo: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPO\tVISIBILITY\tSELECTED")

	for _, r := range repos {
		visibility := "public"
		if r.Private {
			visibility = "private"
		}
		mark := ""
		if r.FullName == selected {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.FullName, visibility, mark)
	}

	return w.Flush()
}

// repoInfo is the JSON output format for seam repos --json.
type repoInfo struct {
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	Selected bool   `json:"selected"`
}
