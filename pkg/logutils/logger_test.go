package logutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, closer, err := New("not-a-level", "")
	defer closer()
	assert.Error(t, err)
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "seam.log")

	logger, closer, err := New("debug", path)
	require.NoError(t, err)

	logger.Info().Str("k", "v").Msg("hello")
	closer()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNew_LevelApplied(t *testing.T) {
	logger, closer, err := New("error", "")
	defer closer()
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
}
