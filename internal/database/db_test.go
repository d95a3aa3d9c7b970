package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	db, err := New(Config{Path: path, Profile: ProfileCache, Name: "cache"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "cache", db.Name())
	assert.Equal(t, ProfileCache, db.Profile())
	assert.Equal(t, path, db.Path())

	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate(), "schema is idempotent")

	var count int
	err = db.Conn().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'price_series'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, db.QuickCheck(context.Background()))
	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageSize)
	assert.Positive(t, stats.PageCount)
}

func TestMigrateUnknownDatabaseIsNoop(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.NoError(t, db.Migrate())
}

func TestBuildConnectionString(t *testing.T) {
	conn := buildConnectionString("/tmp/x.db", ProfileCache)
	assert.Contains(t, conn, "/tmp/x.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, conn, "synchronous(OFF)")

	conn = buildConnectionString("file:mem?mode=memory", ProfileStandard)
	assert.Contains(t, conn, "file:mem?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, conn, "synchronous(NORMAL)")
}
