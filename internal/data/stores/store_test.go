package stores

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colonyops/seam/internal/data/db"
)

// testDB opens a throwaway database in a temp dir.
func testDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(t.TempDir(), db.OpenOptions{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		BusyTimeout:  1000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	return database
}
