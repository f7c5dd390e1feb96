// Package testutil opens throwaway databases for tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"fanova-be/internal/model"
	"fanova-be/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter int64

// NewTestDB returns an isolated in-memory sqlite database with every table migrated.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_busy_timeout=5000", name, atomic.AddInt64(&dbCounter, 1))

	db, err := database.Open(sqlite.Open(dsn), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}
