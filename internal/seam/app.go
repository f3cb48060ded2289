package seam

import (
	"github.com/colonyops/seam/internal/core/assistant"
	"github.com/colonyops/seam/internal/core/chat"
	"github.com/colonyops/seam/internal/core/config"
	"github.com/colonyops/seam/internal/core/kv"
	"github.com/colonyops/seam/internal/data/db"
	"github.com/colonyops/seam/internal/github"
)

// BuildInfo carries version metadata injected at build time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// App aggregates the wired application dependencies handed to commands.
// Populated once in the CLI Before hook.
type App struct {
	Service  *Service
	Config   *config.Config
	Sessions chat.Store
	KV       kv.KV
	GitHub   *github.Client
	Backend  assistant.Client
	DB       *db.DB
	Build    BuildInfo
}
