// Package dbtest opens throwaway SQLite databases carrying the production schema.
package dbtest

import (
	"path/filepath"
	"testing"

	"meetly/config"
	"meetly/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open returns a migrated database in t's temp dir, closed on cleanup. A single
// connection serializes transactions the way row locks would on MySQL.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + filepath.Join(t.TempDir(), "meetly.db") + "?_pragma=busy_timeout(5000)",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}
