package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria/core/internal/infrastructure/config"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "memoria.db"), MaxOpenConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestMigrateIsRecordedAndRepeatable(t *testing.T) {
	db := setupTestDB(t)

	status, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(4), status.Version)
	assert.False(t, status.Dirty)

	// A second startup applies nothing
	require.NoError(t, db.Migrate())

	var tables int
	require.NoError(t, db.DB.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('tasks', 'task_day_states', 'browser_history')`))
	assert.Equal(t, 3, tables)
}

func TestWithTransactionRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO daily_counters (date, count) VALUES ('2024-01-01', 3)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.DB.Get(&count, `SELECT COUNT(*) FROM daily_counters`))
	assert.Zero(t, count)
}

func TestSnapshotTo(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.DB.ExecContext(ctx, `INSERT INTO daily_counters (date, count) VALUES ('2024-01-01', 7)`)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, os.WriteFile(target, []byte("stale"), 0o600))

	require.NoError(t, db.SnapshotTo(ctx, target))

	objects, err := CountSchemaObjects(ctx, target)
	require.NoError(t, err)
	assert.Greater(t, objects, 0)

	snapshot, err := OpenReadOnly(target)
	require.NoError(t, err)
	defer snapshot.Close()

	var count int
	require.NoError(t, snapshot.Get(&count, `SELECT count FROM daily_counters WHERE date = '2024-01-01'`))
	assert.Equal(t, 7, count)
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
