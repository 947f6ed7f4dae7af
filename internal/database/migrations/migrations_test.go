package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunCreatesQueueTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Run(ctx, db))

	for _, table := range []string{"queue_jobs", "queue_cron_jobs", "_caseflow_versions"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, Run(ctx, db))
	require.NoError(t, Run(ctx, db))

	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM _caseflow_versions`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
