package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/seam/internal/apiclient"
	"github.com/colonyops/seam/internal/commands"
	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/config"
	"github.com/colonyops/seam/internal/core/styles"
	"github.com/colonyops/seam/internal/data/db"
	"github.com/colonyops/seam/internal/data/stores"
	"github.com/colonyops/seam/internal/github"
	"github.com/colonyops/seam/internal/seam"
	"github.com/colonyops/seam/pkg/browser"
	"github.com/colonyops/seam/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser   func()
		seamApp     = &seam.App{}
		database    *db.DB
		sweepCancel context.CancelFunc
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "seam",
		Usage:     "Chat your way to a pull request",
		UsageText: "seam [global options] command [command options]",
		Description: `Seam is a chat interface over an assistant backend that answers questions
about a GitHub repository and turns plans into pull requests.

Pick a repository, pin files or let snippet search find context, discuss the
change, and confirm the proposed PR with "ok".

Run 'seam' with no arguments to open the chat interface.
Run 'seam init' to set up configuration for first use.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("SEAM_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/seam.log)",
				Sources:     cli.EnvVars("SEAM_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("SEAM_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("SEAM_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; the terminal belongs to the TUI.
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "seam.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures the name is valid)
			palette, _ := styles.GetPalette(cfg.TUI.Theme)
			styles.SetTheme(palette)

			// Open database connection
			dbOpts := db.OpenOptions{
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				BusyTimeout:  cfg.Database.BusyTimeout,
			}
			database, err = db.Open(cfg.DataDir, dbOpts)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			sessionStore := stores.NewSessionStore(database)
			kvStore := stores.NewKVStore(database)

			// Expired cache entries are deleted lazily on read; sweep
			// periodically so abandoned keys don't pile up.
			sweepCtx, cancel := context.WithCancel(context.Background())
			sweepCancel = cancel
			go sweepExpired(sweepCtx, kvStore, 5*time.Minute)

			backend := apiclient.New(cfg.Backend.URL, cfg.Backend.APIKey)
			githubClient := github.New(cfg.GitHub.APIURL, cfg.GitHub.Token, kvStore)

			var streamer assistant.ChatStreamer
			if cfg.Chat.Provider == config.ProviderOpenAI {
				streamer = apiclient.NewOpenAIStreamer(cfg.Chat.OpenAI.APIKey, cfg.Chat.OpenAI.BaseURL, cfg.Chat.OpenAI.Model)
			}

			service := seam.NewService(seam.Deps{
				Backend:  backend,
				Streamer: streamer,
				Repos:    githubClient,
				Store:    sessionStore,
				OpenURL: func(ctx context.Context, url string) error {
					return browser.Open(ctx, cfg.Browser.Command, url)
				},
				Config: cfg,
				Logger: log.With().Str("component", "seam").Logger(),
			})

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*seamApp = seam.App{
				Service:  service,
				Config:   cfg,
				Sessions: sessionStore,
				KV:       kvStore,
				GitHub:   githubClient,
				Backend:  backend,
				DB:       database,
				Build:    seam.BuildInfo{Version: version, Commit: commit, Date: date},
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if sweepCancel != nil {
				sweepCancel()
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, seamApp)

	app = commands.NewInitCmd(flags).Register(app)
	app = commands.NewReposCmd(flags, seamApp).Register(app)
	app = commands.NewSearchCmd(flags, seamApp).Register(app)
	app = commands.NewSessionsCmd(flags, seamApp).Register(app)
	app = commands.NewDoctorCmd(flags, seamApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'seam --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		fmt.Println(err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}

func sweepExpired(ctx context.Context, kvStore *stores.KVStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := kvStore.SweepExpired(ctx); err != nil {
				log.Debug().Err(err).Msg("sweep expired kv entries")
			}
		}
	}
}
