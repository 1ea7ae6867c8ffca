// Package testutil opens migrated in-memory databases for package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/partnerdesk/internal/migration"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a fresh sqlite database with every model migrated.
// A single connection keeps the in-memory database alive for the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.Migrate(conn))
	return conn
}
