package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/colonyops/seam/internal/core/config"
)

var checkHTTPClient = &http.Client{Timeout: 5 * time.Second}

// ConfigCheck validates the loaded configuration and its file.
type ConfigCheck struct {
	Cfg        *config.Config
	ConfigPath string
}

func (c *ConfigCheck) Name() string { return "Configuration" }

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.ConfigPath == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config file",
			Status: StatusWarn,
			Detail: "no path set, using defaults",
		})
	} else if _, err := os.Stat(c.ConfigPath); os.IsNotExist(err) {
		result.Items = append(result.Items, CheckItem{
			Label:  "Config file",
			Status: StatusWarn,
			Detail: fmt.Sprintf("%s not found, run 'seam init'", c.ConfigPath),
		})
	} else {
		result.Items = append(result.Items, CheckItem{Label: "Config file", Status: StatusPass, Detail: c.ConfigPath})
	}

	if err := c.Cfg.ValidateDeep(c.ConfigPath); err != nil {
		result.Items = append(result.Items, CheckItem{Label: "Validation", Status: StatusFail, Detail: err.Error()})
	} else {
		result.Items = append(result.Items, CheckItem{Label: "Validation", Status: StatusPass})
	}

	return result
}

// GitHubCheck verifies the token by calling the authenticated user endpoint.
type GitHubCheck struct {
	Cfg *config.Config
}

func (c *GitHubCheck) Name() string { return "GitHub" }

func (c *GitHubCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.Cfg.GitHub.Token == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "Token",
			Status: StatusFail,
			Detail: "github.token is not set",
		})
		return result
	}
	result.Items = append(result.Items, CheckItem{Label: "Token", Status: StatusPass})

	status, err := probe(ctx, c.Cfg.GitHub.APIURL+"/user", c.Cfg.GitHub.Token)
	switch {
	case err != nil:
		result.Items = append(result.Items, CheckItem{Label: "API", Status: StatusFail, Detail: err.Error()})
	case status == http.StatusOK:
		result.Items = append(result.Items, CheckItem{Label: "API", Status: StatusPass})
	case status == http.StatusUnauthorized:
		result.Items = append(result.Items, CheckItem{Label: "API", Status: StatusFail, Detail: "token rejected"})
	default:
		result.Items = append(result.Items, CheckItem{Label: "API", Status: StatusWarn, Detail: fmt.Sprintf("status %d", status)})
	}

	if c.Cfg.GitHub.RepoFullName == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "Repository",
			Status: StatusWarn,
			Detail: "none selected, pick one in the TUI",
		})
	} else {
		result.Items = append(result.Items, CheckItem{Label: "Repository", Status: StatusPass, Detail: c.Cfg.GitHub.RepoFullName})
	}

	return result
}

// BackendCheck verifies the assistant backend is reachable.
type BackendCheck struct {
	Cfg *config.Config
}

func (c *BackendCheck) Name() string { return "Backend" }

func (c *BackendCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.Cfg.Backend.URL == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "URL",
			Status: StatusFail,
			Detail: "backend.url is not set",
		})
		return result
	}
	result.Items = append(result.Items, CheckItem{Label: "URL", Status: StatusPass, Detail: c.Cfg.Backend.URL})

	status, err := probe(ctx, c.Cfg.Backend.URL, c.Cfg.Backend.APIKey)
	switch {
	case err != nil:
		result.Items = append(result.Items, CheckItem{Label: "Reachable", Status: StatusFail, Detail: err.Error()})
	case status >= http.StatusInternalServerError:
		result.Items = append(result.Items, CheckItem{Label: "Reachable", Status: StatusFail, Detail: fmt.Sprintf("status %d", status)})
	default:
		result.Items = append(result.Items, CheckItem{Label: "Reachable", Status: StatusPass})
	}

	if c.Cfg.Chat.Provider == config.ProviderOpenAI && c.Cfg.Chat.OpenAI.APIKey == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "OpenAI key",
			Status: StatusFail,
			Detail: "chat.provider is openai but chat.openai.api_key is not set",
		})
	}

	return result
}

// DatabaseCheck verifies the SQLite database opens and accepts a write.
type DatabaseCheck struct {
	// Probe opens the database and performs a round trip.
	Probe func(ctx context.Context) error
	// Path is the database file, for display.
	Path string
}

func (c *DatabaseCheck) Name() string { return "Database" }

func (c *DatabaseCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.Probe(ctx); err != nil {
		result.Items = append(result.Items, CheckItem{Label: "SQLite", Status: StatusFail, Detail: err.Error()})
		return result
	}

	result.Items = append(result.Items, CheckItem{Label: "SQLite", Status: StatusPass, Detail: c.Path})
	return result
}

func probe(ctx context.Context, url, token string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "seam")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := checkHTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
