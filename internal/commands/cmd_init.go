package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/seam/internal/core/config"
	"github.com/colonyops/seam/internal/core/styles"
)

type InitCmd struct {
	flags *Flags

	// flags
	yes   bool
	force bool
}

func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Initialize seam configuration with an interactive wizard",
		UsageText: "seam init [options]",
		Description: `Sets up seam for first-time use.

The wizard prompts for your GitHub token, the assistant backend URL, the
chat provider, and a color theme, then writes the config file.

Use --yes to accept defaults without prompts.
Use --force to overwrite existing configuration.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "accept defaults without prompting",
				Destination: &cmd.yes,
			},
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "overwrite existing configuration",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *InitCmd) run(_ context.Context, _ *cli.Command) error {
	configPath := cmd.flags.ConfigPath

	if _, err := os.Stat(configPath); err == nil && !cmd.force {
		if cmd.yes {
			return fmt.Errorf("config exists at %s; use --force to overwrite", configPath)
		}

		var overwrite bool
		err := huh.NewConfirm().
			Title("Config file already exists").
			Description(configPath + "\nOverwrite?").
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(os.Stderr, "Init cancelled")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = cmd.flags.DataDir

	if !cmd.yes {
		if err := cmd.promptUser(&cfg); err != nil {
			return err
		}
	}

	cfg.SetPath(configPath)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintln(os.Stderr, styles.SuccessStyle.Render("✔")+" Created config: "+configPath)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Next steps:")
	fmt.Fprintln(os.Stderr, "  1. Run 'seam doctor' to verify your setup")
	fmt.Fprintln(os.Stderr, "  2. Run 'seam' to pick a repository and start chatting")
	return nil
}

func (cmd *InitCmd) promptUser(cfg *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("GitHub token").
				Description("Personal access token with repo scope").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.GitHub.Token),
			huh.NewInput().
				Title("Backend URL").
				Description("Assistant service base URL").
				Value(&cfg.Backend.URL),
			huh.NewInput().
				Title("Backend API key").
				Description("Leave empty if the backend is unauthenticated").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Backend.APIKey),
			huh.NewSelect[string]().
				Title("Chat provider").
				Description("Where chat completions are streamed from").
				Options(
					huh.NewOption("Backend service", config.ProviderBackend),
					huh.NewOption("OpenAI-compatible API", config.ProviderOpenAI),
				).
				Value(&cfg.Chat.Provider),
			huh.NewSelect[string]().
				Title("Theme").
				Options(huh.NewOptions(styles.ThemeNames()...)...).
				Value(&cfg.TUI.Theme),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if cfg.Chat.Provider == config.ProviderOpenAI {
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("OpenAI API key").
					EchoMode(huh.EchoModePassword).
					Value(&cfg.Chat.OpenAI.APIKey),
				huh.NewInput().
					Title("Model").
					Value(&cfg.Chat.OpenAI.Model),
				huh.NewInput().
					Title("Base URL").
					Description("Leave empty for api.openai.com").
					Value(&cfg.Chat.OpenAI.BaseURL),
			),
		).Run()
	}

	return nil
}
