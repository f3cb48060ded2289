package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/seam/internal/core/styles"
)

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	switch c.Chat.Provider {
	case ProviderBackend, ProviderOpenAI:
	default:
		return fmt.Errorf("chat.provider must be %q or %q, got %q", ProviderBackend, ProviderOpenAI, c.Chat.Provider)
	}

	if _, ok := styles.GetPalette(c.TUI.Theme); !ok {
		return fmt.Errorf("tui.theme %q is not a known theme (have: %v)", c.TUI.Theme, styles.ThemeNames())
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	for i, pattern := range c.Files.AutoSelect {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("files.auto_select[%d]: invalid glob pattern %q", i, pattern)
		}
	}

	return nil
}

// ValidateDeep performs comprehensive validation including URL shapes and
// file accessibility. It calls Validate() first for structural validation,
// then adds I/O checks. The configPath argument specifies the config file
// location to validate (empty string skips the config file check).
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("backend.url", c.Backend.URL, isHTTPURLOrEmpty),
		criterio.Run("github.api_url", c.GitHub.APIURL, isHTTPURLOrEmpty),
		criterio.Run("chat.openai.base_url", c.Chat.OpenAI.BaseURL, isHTTPURLOrEmpty),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// isHTTPURLOrEmpty validates that a value, when set, parses as an http(s) URL.
func isHTTPURLOrEmpty(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", u.Scheme)
	}
	return nil
}
