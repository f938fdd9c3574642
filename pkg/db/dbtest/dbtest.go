// Package dbtest opens throwaway sqlite databases for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/tollwatch-backend/pkg/config"
	"github.com/angelmondragon/tollwatch-backend/pkg/db"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
)

var seq atomic.Int64

// Open returns a client over a private in-memory sqlite database with the
// alert tables migrated. The pool holds a single connection so transactions
// queue instead of failing with SQLITE_BUSY.
func Open(t testing.TB) *db.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.AlertTables()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return db.Wrap(conn, config.DriverSQLite)
}

// Create inserts fixture rows, failing the test on error.
func Create(t testing.TB, client *db.Client, values ...any) {
	t.Helper()
	for _, value := range values {
		if err := client.DB().Create(value).Error; err != nil {
			t.Fatalf("create fixture %T: %v", value, err)
		}
	}
}
