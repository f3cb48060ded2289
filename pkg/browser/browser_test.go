package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_UsesConfiguredCommand(t *testing.T) {
	var got string
	orig := runSh
	runSh = func(_ context.Context, _, cmd string) error {
		got = cmd
		return nil
	}
	t.Cleanup(func() { runSh = orig })

	err := Open(context.Background(), "firefox", "https://github.com/apps/sweep-ai")
	require.NoError(t, err)
	assert.Equal(t, "firefox https://github.com/apps/sweep-ai", got)
}

func TestOpen_QuotesURL(t *testing.T) {
	var got string
	orig := runSh
	runSh = func(_ context.Context, _, cmd string) error {
		got = cmd
		return nil
	}
	t.Cleanup(func() { runSh = orig })

	err := Open(context.Background(), "opener", "https://example.com/a b;rm")
	require.NoError(t, err)
	assert.Equal(t, `opener 'https://example.com/a b;rm'`, got)
}
