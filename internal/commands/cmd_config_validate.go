package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/seam/internal/core/styles"
)

type ConfigValidateCmd struct {
	flags *Flags
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "seam config validate",
				Description: "Validates the configuration file, checking value shapes, URLs, and file paths.",
				Action:      cmd.run,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(_ context.Context, _ *cli.Command) error {
	w := os.Stderr

	err := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath)
	if err == nil {
		_, _ = fmt.Fprintln(w, styles.SuccessStyle.Render("✔")+" Configuration is valid")
		return nil
	}

	_, _ = fmt.Fprintf(w, "%s %s\n", styles.ErrorStyle.Render("✘"), err)
	return cli.Exit("", 1)
}
