// Package config handles configuration loading, validation, and persistence
// for seam.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Chat providers.
const (
	ProviderBackend = "backend"
	ProviderOpenAI  = "openai"
)

// Config holds the application configuration.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github"`
	Backend  BackendConfig  `yaml:"backend"`
	Chat     ChatConfig     `yaml:"chat"`
	Files    FilesConfig    `yaml:"files"`
	TUI      TUIConfig      `yaml:"tui"`
	Browser  BrowserConfig  `yaml:"browser"`
	Database DatabaseConfig `yaml:"database"`

	DataDir string `yaml:"-"` // set by caller, not from config file

	path string // where Load read the file, for Save
}

// GitHubConfig holds GitHub access and the persisted repository selection.
type GitHubConfig struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"api_url"`

	// RepoFullName and InstallationID are written back by Save when the
	// user picks a repository, so the next launch restores it.
	RepoFullName   string `yaml:"repo_full_name"`
	InstallationID int64  `yaml:"installation_id"`
}

// BackendConfig points at the assistant backend service.
type BackendConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// ChatConfig selects how chat completions are streamed.
type ChatConfig struct {
	// Provider is "backend" (the assistant service proxies the model) or
	// "openai" (stream straight from an OpenAI-compatible API; search and
	// PR creation still go through the backend).
	Provider string       `yaml:"provider"`
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the openai chat provider.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// FilesConfig controls file selection behavior.
type FilesConfig struct {
	// AutoSelect globs are expanded against the file listing and selected
	// automatically when a repository is picked.
	AutoSelect []string `yaml:"auto_select"`
}

// TUIConfig holds presentation settings.
type TUIConfig struct {
	Theme string `yaml:"theme"`
}

// BrowserConfig overrides the platform URL opener.
type BrowserConfig struct {
	Command string `yaml:"command"`
}

// DatabaseConfig tunes the SQLite connection pool.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		Chat: ChatConfig{
			Provider: ProviderBackend,
			OpenAI: OpenAIConfig{
				Model: "gpt-4",
			},
		},
		TUI: TUIConfig{
			Theme: "tokyo-night",
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the
// provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir
	cfg.path = configPath

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set fields Unmarshal may have cleared
			cfg.DataDir = dataDir
			cfg.path = configPath
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration back to the file it was loaded from. Used
// to persist the repository selection and installation ID.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path to save to")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Path returns the config file location.
func (c *Config) Path() string { return c.path }

// SetPath overrides the save location. Used by init and tests.
func (c *Config) SetPath(p string) { c.path = p }

// DatabaseFile returns the SQLite database path inside the data directory.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, "seam.db")
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = defaults.GitHub.APIURL
	}
	if c.Chat.Provider == "" {
		c.Chat.Provider = defaults.Chat.Provider
	}
	if c.Chat.OpenAI.Model == "" {
		c.Chat.OpenAI.Model = defaults.Chat.OpenAI.Model
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}
