// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"testing"

	"photo_share/internal/config"
	"photo_share/internal/db"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New returns a migrated in-memory SQLite database closed when t ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(config.DBDriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}
