package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/seam/internal/core/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load("", t.TempDir())
	require.NoError(t, err)
	return cfg
}

func itemByLabel(t *testing.T, r Result, label string) CheckItem {
	t.Helper()

	for _, item := range r.Items {
		if item.Label == label {
			return item
		}
	}
	t.Fatalf("no item %q in %v", label, r.Items)
	return CheckItem{}
}

func TestSummary(t *testing.T) {
	results := []Result{
		{Items: []CheckItem{{Status: StatusPass}, {Status: StatusWarn}}},
		{Items: []CheckItem{{Status: StatusFail}, {Status: StatusPass}}},
	}

	passed, warned, failed := Summary(results)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, warned)
	assert.Equal(t, 1, failed)
}

func TestConfigCheck(t *testing.T) {
	cfg := testConfig(t)

	result := (&ConfigCheck{Cfg: cfg, ConfigPath: ""}).Run(context.Background())
	assert.Equal(t, StatusWarn, itemByLabel(t, result, "Config file").Status)
	assert.Equal(t, StatusPass, itemByLabel(t, result, "Validation").Status)
}

func TestGitHubCheck(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		result := (&GitHubCheck{Cfg: testConfig(t)}).Run(context.Background())
		assert.Equal(t, StatusFail, itemByLabel(t, result, "Token").Status)
	})

	t.Run("token accepted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/user", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		cfg := testConfig(t)
		cfg.GitHub.Token = "tok"
		cfg.GitHub.APIURL = srv.URL

		result := (&GitHubCheck{Cfg: cfg}).Run(context.Background())
		assert.Equal(t, StatusPass, itemByLabel(t, result, "Token").Status)
		assert.Equal(t, StatusPass, itemByLabel(t, result, "API").Status)
		assert.Equal(t, StatusWarn, itemByLabel(t, result, "Repository").Status)
	})

	t.Run("token rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		cfg := testConfig(t)
		cfg.GitHub.Token = "bad"
		cfg.GitHub.APIURL = srv.URL

		result := (&GitHubCheck{Cfg: cfg}).Run(context.Background())
		assert.Equal(t, StatusFail, itemByLabel(t, result, "API").Status)
	})
}

func TestBackendCheck(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		result := (&BackendCheck{Cfg: testConfig(t)}).Run(context.Background())
		assert.Equal(t, StatusFail, itemByLabel(t, result, "URL").Status)
	})

	t.Run("reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound) // any non-5xx means the service answered
		}))
		defer srv.Close()

		cfg := testConfig(t)
		cfg.Backend.URL = srv.URL

		result := (&BackendCheck{Cfg: cfg}).Run(context.Background())
		assert.Equal(t, StatusPass, itemByLabel(t, result, "Reachable").Status)
	})

	t.Run("openai provider without key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		cfg := testConfig(t)
		cfg.Backend.URL = srv.URL
		cfg.Chat.Provider = config.ProviderOpenAI

		result := (&BackendCheck{Cfg: cfg}).Run(context.Background())
		assert.Equal(t, StatusFail, itemByLabel(t, result, "OpenAI key").Status)
	})
}

func TestDatabaseCheck(t *testing.T) {
	ok := (&DatabaseCheck{Probe: func(context.Context) error { return nil }, Path: "/tmp/seam.db"}).Run(context.Background())
	assert.Equal(t, StatusPass, itemByLabel(t, ok, "SQLite").Status)

	bad := (&DatabaseCheck{Probe: func(context.Context) error { return errors.New("locked") }}).Run(context.Background())
	assert.Equal(t, StatusFail, itemByLabel(t, bad, "SQLite").Status)
}
